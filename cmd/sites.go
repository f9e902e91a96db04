package main

import (
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-report-cli/internal/site"
)

var sitesCmd = &cobra.Command{
	Use:   "sites",
	Short: "List and validate site profiles",
	RunE: func(cmd *cobra.Command, _ []string) error {
		sites, err := loadSites(nil)
		if err != nil {
			return err
		}
		formatSites(os.Stdout, sites)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sitesCmd)
}

func formatSites(out io.Writer, sites []*site.Site) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Site", "Prefix", "Format", "Date from", "Patterns", "Index"})
	for _, s := range sites {
		dateFrom := s.Date.From
		if dateFrom == "" {
			dateFrom = "link"
		}
		t.AppendRow(table.Row{s.SiteID, s.Prefix, string(s.Format), dateFrom, len(s.Rules.Patterns), s.IndexURL})
	}
	t.Render()
}
