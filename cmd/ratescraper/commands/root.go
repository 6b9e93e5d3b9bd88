package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maltedev/mortgage-rate-scraper/internal/config"
	"github.com/maltedev/mortgage-rate-scraper/pkg/logger"
	"github.com/spf13/cobra"
)

var sourcesDir *string

var rootCmd = &cobra.Command{
	Use:   "ratescraper",
	Short: "ratescraper scrapes mortgage rates from configured bank pages.",
}

func init() {
	sourcesDir = rootCmd.PersistentFlags().String("sources-dir", "", "Directory holding source descriptors (overrides SOURCES_DIR).")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if *sourcesDir != "" {
		cfg.Scraper.SourcesDir = *sourcesDir
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)
	return cfg, log, nil
}

func newTable(cmd *cobra.Command) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(cmd.OutOrStdout())
	return t
}
