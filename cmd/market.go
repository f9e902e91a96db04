package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/market-report-cli/internal/market"
	"github.com/sells-group/market-report-cli/internal/model"
)

var marketCmd = &cobra.Command{
	Use:   "market",
	Short: "Manage market metadata and the processed-report log",
}

// -- market migrate --

var marketMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the market tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("market"); err != nil {
			return err
		}
		st, err := initMarketStore(cmd.Context())
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		fmt.Fprintf(os.Stderr, "market store migrated (%s)\n", cfg.Market.Driver)
		return nil
	},
}

// -- market import --

var marketImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Load websites and sale barn addresses from YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("market"); err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "market import: read %s", args[0])
		}
		markets, err := parseMarkets(data)
		if err != nil {
			return err
		}

		st, err := initMarketStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		for _, m := range markets {
			if err := st.PutMarket(ctx, m); err != nil {
				return err
			}
		}
		fmt.Fprintf(os.Stderr, "imported %d markets\n", len(markets))
		return nil
	},
}

// -- market show --

var marketShowCmd = &cobra.Command{
	Use:   "show <site-id>",
	Short: "Show a site's market metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return eris.Errorf("invalid site id %q", args[0])
		}
		st, err := initMarketStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		m, err := st.Market(ctx, id)
		if err != nil {
			return err
		}
		formatMarket(os.Stdout, m)
		return nil
	},
}

// -- market reports --

var (
	reportsPrefix string
	reportsLimit  int
)

var marketReportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List the processed-report log",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initMarketStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		reports, err := st.Reports(ctx, reportsPrefix, reportsLimit)
		if err != nil {
			return err
		}
		if len(reports) == 0 {
			fmt.Fprintln(os.Stderr, "No processed reports found.")
			return nil
		}
		formatReports(os.Stdout, reports)
		return nil
	},
}

func init() {
	marketReportsCmd.Flags().StringVar(&reportsPrefix, "prefix", "", "filter by site prefix")
	marketReportsCmd.Flags().IntVar(&reportsLimit, "limit", 50, "max number of reports to display")

	marketCmd.AddCommand(marketMigrateCmd)
	marketCmd.AddCommand(marketImportCmd)
	marketCmd.AddCommand(marketShowCmd)
	marketCmd.AddCommand(marketReportsCmd)
	rootCmd.AddCommand(marketCmd)
}

// marketFile is one entry of a market import file.
type marketFile struct {
	SiteID    int            `yaml:"site_id"`
	Website   string         `yaml:"website"`
	Prefix    string         `yaml:"prefix"`
	Locations []locationFile `yaml:"locations"`
}

type locationFile struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
	PO      string `yaml:"po"`
	City    string `yaml:"city"`
	State   string `yaml:"state"`
	Zip     string `yaml:"zip"`
}

func parseMarkets(data []byte) ([]model.Market, error) {
	var entries []marketFile
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, eris.Wrap(err, "market import: parse")
	}
	out := make([]model.Market, 0, len(entries))
	for _, e := range entries {
		m := model.Market{SiteID: e.SiteID, Website: e.Website, Prefix: e.Prefix}
		for _, l := range e.Locations {
			rec := model.SaleRecord{}
			rec.Set(model.SaleName, l.Name)
			rec.Set(model.SaleAddress, l.Address)
			rec.Set(model.SalePO, l.PO)
			rec.Set(model.SaleCity, l.City)
			rec.Set(model.SaleState, l.State)
			rec.Set(model.SaleZip, l.Zip)
			m.Locations = append(m.Locations, rec)
		}
		out = append(out, m)
	}
	return out, nil
}

func formatMarket(out io.Writer, m model.Market) {
	fmt.Fprintf(out, "Site %d  %s  prefix=%s\n", m.SiteID, m.URL(), m.Prefix)
	t := newTable(out)
	t.AppendHeader(table.Row{"Name", "Address", "PO", "City", "State", "Zip"})
	for _, l := range m.Locations {
		t.AppendRow(table.Row{
			l[model.SaleName], l[model.SaleAddress], l[model.SalePO],
			l[model.SaleCity], l[model.SaleState], l[model.SaleZip],
		})
	}
	t.Render()
}

func formatReports(out io.Writer, reports []market.Report) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Prefix", "Sale date", "Records", "Unmatched", "Processed", "Path"})
	for _, r := range reports {
		t.AppendRow(table.Row{
			r.Prefix, r.SaleDate.Format("2006-01-02"), r.Records, r.Unmatched,
			r.ProcessedAt.Local().Format("2006-01-02 15:04"), r.Path,
		})
	}
	t.Render()
}
