package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-report-cli/internal/fetcher"
	"github.com/sells-group/market-report-cli/internal/market"
	"github.com/sells-group/market-report-cli/internal/report"
)

var (
	parseDate string
	parseOut  string
)

var parseCmd = &cobra.Command{
	Use:   "parse <site-id> <file|url>",
	Short: "Extract sale records from one report with a site's rules",
	Long:  "Runs a site's line rules over a local or remote report and prints the CSV. Nothing is archived; use it to develop site profiles.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("parse"); err != nil {
			return err
		}
		sites, err := loadSites(args[:1])
		if err != nil {
			return err
		}
		s := sites[0]

		var saleDate time.Time
		if parseDate != "" {
			saleDate, err = time.Parse("2006-01-02", parseDate)
			if err != nil {
				return eris.Wrapf(err, "parse: --date %q", parseDate)
			}
		}

		f := fetcher.NewHTTPFetcher(fetcher.OptionsFromConfig(cfg.Fetch))
		file, cleanup, err := localReport(ctx, f, args[1])
		if err != nil {
			return err
		}
		defer cleanup()

		var markets market.Store
		if st, err := initMarketStore(ctx); err != nil {
			zap.L().Warn("market store unavailable, parsing without market defaults", zap.Error(err))
		} else {
			defer st.Close() //nolint:errcheck
			markets = st
		}

		var out io.Writer = os.Stdout
		if parseOut != "" {
			fh, err := os.Create(parseOut)
			if err != nil {
				return eris.Wrapf(err, "parse: create %s", parseOut)
			}
			defer fh.Close() //nolint:errcheck
			out = fh
		}

		res, err := report.New(cfg, f, markets).ParseFile(ctx, s, file, saleDate, out)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stderr, "%d records, %d headings, %d denied, %d unmatched\n",
			len(res.Records), res.Headings, res.Denied, len(res.Unmatched))
		for _, line := range res.Unmatched {
			fmt.Fprintf(os.Stderr, "  unmatched: %s\n", line)
		}
		return nil
	},
}

func init() {
	parseCmd.Flags().StringVar(&parseDate, "date", "", "sale date (YYYY-MM-DD); read from the report when omitted")
	parseCmd.Flags().StringVarP(&parseOut, "out", "o", "", "write the CSV to this file instead of stdout")
	rootCmd.AddCommand(parseCmd)
}

// localReport returns a local path for arg, downloading it to a temp file
// when it is a URL.
func localReport(ctx context.Context, f fetcher.Fetcher, arg string) (string, func(), error) {
	if !strings.HasPrefix(arg, "http://") && !strings.HasPrefix(arg, "https://") {
		return arg, func() {}, nil
	}
	dir, err := os.MkdirTemp("", "market-report-parse-*")
	if err != nil {
		return "", nil, eris.Wrap(err, "parse: create temp dir")
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	name := path.Base(strings.SplitN(arg, "?", 2)[0])
	if name == "" || name == "/" || name == "." {
		name = "report"
	}
	file := filepath.Join(dir, name)
	if _, err := f.DownloadToFile(ctx, arg, file); err != nil {
		cleanup()
		return "", nil, err
	}
	return file, cleanup, nil
}
