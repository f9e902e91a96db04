package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-report-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "market-report",
	Short: "Livestock auction market report harvester",
	Long:  "Fetches auction market reports (HTML, PDF, scanned images, spreadsheets, JSON feeds), extracts individual cattle sales and archives one CSV per report.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
