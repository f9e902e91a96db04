package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/market-report-cli/internal/archive"
	"github.com/sells-group/market-report-cli/internal/model"
	"github.com/sells-group/market-report-cli/internal/salecsv"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and promote archived report outputs",
	Long:  "Committed outputs wait in {prefix}_scrape/ until promoted into {prefix}_scrape/dbased/ once loaded downstream.",
}

// -- archive status --

var archiveStatusCmd = &cobra.Command{
	Use:   "status <prefix>...",
	Short: "List archived and pending outputs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var statuses []archive.Status
		for _, prefix := range args {
			a, err := archive.New(cfg.Archive.Root, prefix)
			if err != nil {
				return err
			}
			st, err := a.Status()
			if err != nil {
				return eris.Wrapf(err, "archive status %s", prefix)
			}
			statuses = append(statuses, st)
		}
		formatArchiveStatus(os.Stdout, statuses)
		return nil
	},
}

// -- archive promote --

var promoteAll bool

var archivePromoteCmd = &cobra.Command{
	Use:   "promote <prefix> [name...]",
	Short: "Move committed outputs into the archive",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.New(cfg.Archive.Root, args[0])
		if err != nil {
			return err
		}

		names := args[1:]
		if promoteAll {
			if len(names) > 0 {
				return eris.New("archive promote: --all takes no names")
			}
			done, err := a.PromoteAll()
			for _, name := range done {
				fmt.Fprintln(os.Stdout, name)
			}
			return err
		}
		if len(names) == 0 {
			return eris.New("archive promote: name outputs to promote or pass --all")
		}
		for _, name := range names {
			if err := a.Promote(name); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, name)
		}
		return nil
	},
}

// -- archive show --

var archiveShowCmd = &cobra.Command{
	Use:   "show <prefix> <name>",
	Short: "Print the records of an output",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := archive.New(cfg.Archive.Root, args[0])
		if err != nil {
			return err
		}
		path, err := findOutput(a, args[1])
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "archive show: open %s", path)
		}
		defer f.Close() //nolint:errcheck

		recs, err := salecsv.ReadAll(f)
		if err != nil {
			return eris.Wrapf(err, "archive show: read %s", path)
		}
		formatRecords(os.Stdout, recs)
		return nil
	},
}

func init() {
	archivePromoteCmd.Flags().BoolVar(&promoteAll, "all", false, "promote every pending output")

	archiveCmd.AddCommand(archiveStatusCmd)
	archiveCmd.AddCommand(archivePromoteCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	rootCmd.AddCommand(archiveCmd)
}

// findOutput locates name among pending then archived outputs.
func findOutput(a *archive.Archive, name string) (string, error) {
	if name != filepath.Base(name) {
		return "", eris.Errorf("archive show: %q is not a file name", name)
	}
	for _, dir := range []string{a.OutputDir(), a.Dir()} {
		p := filepath.Join(dir, name)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", eris.Errorf("archive show: %s not found", name)
}

func formatArchiveStatus(out io.Writer, statuses []archive.Status) {
	t := newTable(out)
	t.AppendHeader(table.Row{"Prefix", "Sale date", "Output", "State"})
	for _, st := range statuses {
		for _, e := range st.Pending {
			t.AppendRow(table.Row{st.Prefix, e.SaleDate.Format("2006-01-02"), e.Name, "pending"})
		}
		for _, e := range st.Archived {
			t.AppendRow(table.Row{st.Prefix, e.SaleDate.Format("2006-01-02"), e.Name, "archived"})
		}
	}
	t.Render()
}

// recordColumns are the columns shown by archive show.
var recordColumns = []model.Field{
	model.ConsignorName, model.ConsignorCity, model.ConsignorState,
	model.CattleCattle, model.CattleHead, model.CattleAvgWeight,
	model.CattlePriceCwt, model.CattlePrice,
}

func formatRecords(out io.Writer, recs []model.SaleRecord) {
	t := newTable(out)
	header := table.Row{"Date"}
	for _, f := range recordColumns {
		header = append(header, string(f))
	}
	t.AppendHeader(header)
	for _, rec := range recs {
		row := table.Row{fmt.Sprintf("%s-%s-%s", rec[model.SaleYear], rec[model.SaleMonth], rec[model.SaleDay])}
		for _, f := range recordColumns {
			row = append(row, rec[f])
		}
		t.AppendRow(row)
	}
	t.AppendFooter(table.Row{fmt.Sprintf("%d records", len(recs))})
	t.Render()
}
