package report

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/market-report-cli/internal/extract"
	"github.com/sells-group/market-report-cli/internal/market"
	"github.com/sells-group/market-report-cli/internal/model"
	"github.com/sells-group/market-report-cli/internal/salecsv"
	"github.com/sells-group/market-report-cli/internal/site"
	"github.com/sells-group/market-report-cli/internal/source"
	"github.com/sells-group/market-report-cli/internal/staging"
)

// ParseFile extracts the records of a local report file with the site's
// rules and writes them as CSV to w. Nothing is archived or staged. A zero
// saleDate is read from the report, then from the file name.
func (p *Processor) ParseFile(ctx context.Context, s *site.Site, file string, saleDate time.Time, w io.Writer) (extract.Result, error) {
	lines, err := p.fileLines(ctx, s, file)
	if err != nil {
		return extract.Result{}, err
	}

	if saleDate.IsZero() {
		if d, ok := s.ContentDate(lines); ok {
			saleDate = d
		} else if d, ok := s.LinkDate(site.Link{URL: file}); ok {
			saleDate = d
		}
	}

	base := model.SaleRecord{}
	if p.markets != nil {
		m, err := p.markets.Market(ctx, s.SiteID)
		switch {
		case eris.Is(err, market.ErrUnknownSite):
			zap.L().Warn("report: no market metadata, parsing without defaults",
				zap.String("component", "report"),
				zap.Int("site_id", s.SiteID),
			)
		case err != nil:
			return extract.Result{}, err
		default:
			base = m.Defaults()
		}
	}

	defaults := model.NewReportDefaults(s.BaseDefaults(base), saleDate, "", s.Head(lines))
	res, err := extract.NewWalker(s.Rules).Walk(lines, defaults)
	if err != nil {
		return res, err
	}
	return res, salecsv.WriteAll(w, res.Records)
}

func (p *Processor) fileLines(ctx context.Context, s *site.Site, file string) ([]string, error) {
	if !s.Format.NeedsConversion() {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, eris.Wrapf(err, "report: read %s", file)
		}
		return source.Lines(s.Format, data, s.SourceOptions())
	}

	conv, err := p.convert(extension(file, s.Format))
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "market-report-*")
	if err != nil {
		return nil, eris.Wrap(err, "report: create temp dir")
	}
	defer os.RemoveAll(dir) //nolint:errcheck

	dst := filepath.Join(dir, "report.txt")
	if err := conv.Convert(ctx, file, dst); err != nil {
		return nil, eris.Wrapf(err, "report: convert %s", file)
	}
	data, err := os.ReadFile(dst)
	if err != nil {
		return nil, eris.Wrapf(err, "report: read converted %s", dst)
	}
	return staging.SplitLines(data), nil
}
