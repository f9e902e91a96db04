// Package report runs the acquisition and extraction flow for one site:
// listing, dedup, staging and conversion, line walking, CSV output and the
// processed-report audit log.
package report

import (
	"context"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-report-cli/internal/archive"
	"github.com/sells-group/market-report-cli/internal/config"
	"github.com/sells-group/market-report-cli/internal/extract"
	"github.com/sells-group/market-report-cli/internal/fetcher"
	"github.com/sells-group/market-report-cli/internal/market"
	"github.com/sells-group/market-report-cli/internal/model"
	"github.com/sells-group/market-report-cli/internal/ocr"
	"github.com/sells-group/market-report-cli/internal/resilience"
	"github.com/sells-group/market-report-cli/internal/salecsv"
	"github.com/sells-group/market-report-cli/internal/site"
	"github.com/sells-group/market-report-cli/internal/source"
	"github.com/sells-group/market-report-cli/internal/staging"
)

// ConverterFactory returns the converter for a staged file extension.
type ConverterFactory func(ext string) (staging.Converter, error)

// Processor processes the reports of one site at a time.
type Processor struct {
	cfg     *config.Config
	fetcher fetcher.Fetcher
	markets market.Store
	convert ConverterFactory
}

// New creates a Processor. Converters come from the configured OCR provider.
func New(cfg *config.Config, f fetcher.Fetcher, markets market.Store) *Processor {
	return &Processor{
		cfg:     cfg,
		fetcher: f,
		markets: markets,
		convert: func(ext string) (staging.Converter, error) {
			return ocr.NewConverter(cfg.Staging.OCR, ext)
		},
	}
}

// WithConverters replaces the converter factory.
func (p *Processor) WithConverters(factory ConverterFactory) *Processor {
	p.convert = factory
	return p
}

// run holds the per-site state shared by every report of one Run.
type run struct {
	site     *site.Site
	prefix   string
	archive  *archive.Archive
	walker   *extract.Walker
	defaults model.SaleRecord
	log      *zap.Logger
}

// Run processes every candidate report on the site's index page. Report
// failures are recorded in the summary; the returned error is reserved for
// failures that stop the whole site (unknown market, unreachable listing,
// cancellation).
func (p *Processor) Run(ctx context.Context, s *site.Site) (*Summary, error) {
	m, err := p.markets.Market(ctx, s.SiteID)
	if err != nil {
		return nil, eris.Wrapf(err, "report: market for site %d", s.SiteID)
	}
	prefix := s.PrefixOr(m.Prefix)
	if prefix == "" {
		return nil, eris.Errorf("report: site %d has no prefix", s.SiteID)
	}
	arc, err := archive.New(p.cfg.Archive.Root, prefix)
	if err != nil {
		return nil, err
	}

	r := &run{
		site:     s,
		prefix:   prefix,
		archive:  arc,
		walker:   extract.NewWalker(s.Rules),
		defaults: s.BaseDefaults(m.Defaults()),
		log: zap.L().With(
			zap.String("component", "report"),
			zap.Int("site_id", s.SiteID),
			zap.String("prefix", prefix),
		),
	}
	summary := &Summary{SiteID: s.SiteID, Prefix: prefix}

	indexURL := s.IndexURL
	if indexURL == "" {
		indexURL = m.URL()
	}
	if indexURL == "" {
		return summary, eris.Errorf("report: site %d has no index url", s.SiteID)
	}
	page, err := p.fetcher.Get(ctx, indexURL)
	if err != nil {
		return summary, eris.Wrapf(err, "report: listing %s", indexURL)
	}
	links, err := s.Links(page, indexURL)
	if err != nil {
		return summary, err
	}
	r.log.Info("report: listing fetched", zap.String("url", indexURL), zap.Int("links", len(links)))

	for _, link := range links {
		if err := ctx.Err(); err != nil {
			return summary, eris.Wrap(err, "report: run cancelled")
		}
		res := p.process(ctx, r, link)
		summary.add(res)

		switch res.Outcome {
		case OutcomeFailed:
			r.log.Error("report: failed",
				zap.String("url", link.URL),
				zap.String("error_class", string(resilience.ClassifyError(res.Err))),
				zap.Error(res.Err),
			)
		case OutcomeSkipped:
			r.log.Debug("report: skipped", zap.String("url", link.URL), zap.String("reason", res.Reason))
		default:
			r.log.Info("report: processed",
				zap.String("url", link.URL),
				zap.String("output", res.Output),
				zap.Int("records", res.Records),
				zap.Int("unmatched", res.Unmatched),
			)
		}
	}

	r.log.Info("report: site complete",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
	)
	return summary, nil
}

// process takes one listing link to a committed output. The dedup gate runs
// before download when the listing carries the sale date, otherwise right
// after text extraction.
func (p *Processor) process(ctx context.Context, r *run, link site.Link) Result {
	res := Result{URL: link.URL}
	title := r.site.Title(link)

	var handle *archive.Handle
	if !r.site.DateFromContent() {
		d, ok := r.site.LinkDate(link)
		if !ok {
			return res.skip("no sale date in link")
		}
		res.SaleDate = d
		h, err := r.archive.Reserve(d, title)
		if err != nil {
			return res.fail(err)
		}
		if h == nil {
			return res.skip("already processed")
		}
		handle = h
	}

	lines, err := p.lines(ctx, r, link)
	if err != nil {
		return res.fail(err)
	}

	if handle == nil {
		d, ok := r.site.ContentDate(lines)
		if !ok {
			return res.skip("no sale date in report")
		}
		res.SaleDate = d
		h, err := r.archive.Reserve(d, title)
		if err != nil {
			return res.fail(err)
		}
		if h == nil {
			return res.skip("already processed")
		}
		handle = h
	}
	defer handle.Abort() //nolint:errcheck

	defaults := model.NewReportDefaults(r.defaults, res.SaleDate, title, r.site.Head(lines))
	walked, err := r.walker.Walk(lines, defaults)
	if err != nil {
		return res.fail(err)
	}
	for _, line := range walked.Unmatched {
		r.log.Warn("report: unmatched sale line",
			zap.String("url", link.URL),
			zap.String("line", line),
		)
	}

	f, err := handle.Create()
	if err != nil {
		return res.fail(err)
	}
	if err := salecsv.WriteAll(f, walked.Records); err != nil {
		return res.fail(err)
	}
	if err := handle.Commit(); err != nil {
		return res.fail(err)
	}

	res.Outcome = OutcomeProcessed
	res.Output = handle.Name()
	res.Records = len(walked.Records)
	res.Unmatched = len(walked.Unmatched)

	if _, err := p.markets.RecordReport(ctx, market.Report{
		Prefix:    r.prefix,
		SaleDate:  res.SaleDate,
		Path:      handle.Path(),
		Records:   res.Records,
		Unmatched: res.Unmatched,
	}); err != nil {
		r.log.Warn("report: audit log write failed", zap.String("output", res.Output), zap.Error(err))
	}
	return res
}

// lines materializes the report text: binary documents are staged and
// converted, everything else is parsed in memory.
func (p *Processor) lines(ctx context.Context, r *run, link site.Link) ([]string, error) {
	if !r.site.Format.NeedsConversion() {
		data, err := p.fetcher.Get(ctx, link.URL)
		if err != nil {
			return nil, err
		}
		return source.Lines(r.site.Format, data, r.site.SourceOptions())
	}

	ext := extension(link.URL, r.site.Format)
	conv, err := p.convert(ext)
	if err != nil {
		return nil, err
	}
	raw, err := staging.New(p.cfg.Archive.Root, r.prefix, ext)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := raw.Clean(p.cfg.Staging.KeepIntermediates); err != nil {
			r.log.Warn("report: staging cleanup failed", zap.String("path", raw.Path()), zap.Error(err))
		}
	}()

	body, err := p.fetcher.Download(ctx, link.URL)
	if err != nil {
		return nil, err
	}
	defer body.Close() //nolint:errcheck

	f, err := raw.Create()
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, body); err != nil {
		return nil, eris.Wrapf(err, "report: stage %s", link.URL)
	}
	return raw.Convert(ctx, conv)
}

// extension returns the staged file extension of a report URL.
func extension(rawURL string, format source.Format) string {
	p := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		p = u.Path
	}
	if ext := strings.ToLower(strings.TrimPrefix(path.Ext(p), ".")); ext != "" && len(ext) <= 4 {
		return ext
	}
	if format == source.FormatImage {
		return "jpg"
	}
	return string(format)
}

// Outcome classifies what happened to one candidate report.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Result is the outcome of one candidate report.
type Result struct {
	URL       string
	SaleDate  time.Time
	Outcome   Outcome
	Reason    string
	Output    string
	Records   int
	Unmatched int
	Err       error
}

func (r Result) skip(reason string) Result {
	r.Outcome = OutcomeSkipped
	r.Reason = reason
	return r
}

func (r Result) fail(err error) Result {
	r.Outcome = OutcomeFailed
	r.Err = err
	r.Reason = err.Error()
	return r
}

// Summary tallies the outcomes of one site run.
type Summary struct {
	SiteID    int
	Prefix    string
	Processed int
	Skipped   int
	Failed    int
	Reports   []Result
	// Err is set when the site as a whole could not be processed.
	Err error
}

// Records returns the total records and unmatched lines across processed reports.
func (s *Summary) Records() (records, unmatched int) {
	for _, r := range s.Reports {
		records += r.Records
		unmatched += r.Unmatched
	}
	return records, unmatched
}

func (s *Summary) add(r Result) {
	s.Reports = append(s.Reports, r)
	switch r.Outcome {
	case OutcomeProcessed:
		s.Processed++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFailed:
		s.Failed++
	}
}
