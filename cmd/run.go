package main

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/market-report-cli/internal/fetcher"
	"github.com/sells-group/market-report-cli/internal/monitoring"
	"github.com/sells-group/market-report-cli/internal/report"
	"github.com/sells-group/market-report-cli/internal/site"
)

var runAll bool

var runCmd = &cobra.Command{
	Use:   "run [site-id...]",
	Short: "Fetch and process new market reports",
	Long:  "Fetches each site's report listing and processes every report not yet archived. Sites are processed concurrently; reports within a site sequentially.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if len(args) == 0 && !runAll {
			return eris.New("run: name at least one site id or pass --all")
		}
		if err := cfg.Validate("run"); err != nil {
			return err
		}

		sites, err := loadSites(args)
		if err != nil {
			return err
		}

		st, err := initMarketStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		f := fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(cfg.Fetch))
		proc := report.New(cfg, f, st)

		summaries, err := runSites(ctx, sites, cfg.Run.MaxConcurrentSites, proc.Run)
		formatSummaries(os.Stdout, summaries)

		alerter := monitoring.NewAlerter(cfg.Alerts)
		alerts := alerter.Evaluate(monitoring.Collect(summaries))
		for _, a := range alerts {
			zap.L().Warn("run alert", zap.String("type", string(a.Type)), zap.String("message", a.Message))
		}
		alerter.SendAlerts(ctx, alerts)
		return err
	},
}

func init() {
	runCmd.Flags().BoolVar(&runAll, "all", false, "process every site profile")
	rootCmd.AddCommand(runCmd)
}

// siteFunc processes one site.
type siteFunc func(ctx context.Context, s *site.Site) (*report.Summary, error)

// runSites processes sites concurrently. A failing site is logged and does
// not stop the others; the returned error reports how many sites failed.
func runSites(ctx context.Context, sites []*site.Site, concurrency int, process siteFunc) ([]*report.Summary, error) {
	if len(sites) == 0 {
		zap.L().Info("no sites to process")
		return nil, nil
	}
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var (
		mu        sync.Mutex
		summaries = make([]*report.Summary, len(sites))
		failed    int
	)

	for i, s := range sites {
		g.Go(func() error {
			log := zap.L().With(zap.Int("site_id", s.SiteID))

			sum, err := process(gctx, s)
			if err != nil {
				mu.Lock()
				failed++
				mu.Unlock()
				log.Error("site failed", zap.Error(err))
			}
			if sum == nil {
				sum = &report.Summary{SiteID: s.SiteID, Prefix: s.Prefix}
			}
			sum.Err = err
			summaries[i] = sum
			return nil // don't abort other sites on one failure
		})
	}

	if err := g.Wait(); err != nil {
		return summaries, eris.Wrap(err, "run sites")
	}
	if failed > 0 {
		return summaries, eris.Errorf("run: %d of %d sites failed", failed, len(sites))
	}
	return summaries, nil
}

func formatSummaries(out io.Writer, summaries []*report.Summary) {
	if len(summaries) == 0 {
		return
	}
	t := newTable(out)
	t.AppendHeader(table.Row{"Site", "Prefix", "Processed", "Skipped", "Failed"})
	var processed, skipped, failed int
	for _, s := range summaries {
		t.AppendRow(table.Row{s.SiteID, s.Prefix, s.Processed, s.Skipped, s.Failed})
		processed += s.Processed
		skipped += s.Skipped
		failed += s.Failed
	}
	t.AppendFooter(table.Row{"", "Total", processed, skipped, failed})
	t.Render()
}
