package commands

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maltedev/mortgage-rate-scraper/internal/app"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/spf13/cobra"
)

var (
	scrapeBatch    *bool
	scrapeSessions *int
)

func init() {
	scrapeBatch = scrapeCmd.Flags().Bool("batch-persist", false, "Persist all results with a single write (overrides SCRAPER_BATCH_PERSIST).")
	scrapeSessions = scrapeCmd.Flags().Int("max-sessions", 0, "Maximum concurrent browser sessions (overrides SCRAPER_MAX_SESSIONS).")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [source...]",
	Short: "Scrapes and stores rates for the given sources, or for every configured source.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("batch-persist") {
			cfg.Scraper.BatchPersist = *scrapeBatch
		}
		if *scrapeSessions > 0 {
			cfg.Scraper.MaxSessions = *scrapeSessions
		}

		application, err := app.New(cmd.Context(), cfg, log)
		if err != nil {
			return err
		}
		defer application.Close()

		names := args
		if len(names) == 0 {
			if names, err = application.Sources.List(); err != nil {
				return err
			}
		}

		t1 := time.Now()
		var results []models.RateResult
		if len(names) == 1 {
			result, err := application.Orchestrator.RunOne(cmd.Context(), names[0])
			if err != nil {
				cmd.SilenceUsage = true
				return err
			}
			results = append(results, *result)
		} else {
			results = application.Orchestrator.RunMany(cmd.Context(), names)
		}
		log.Info("scraping time", "seconds", time.Since(t1).Seconds())

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Source", "Rate %", "APR %", "Points", "As of"})
		for _, r := range results {
			t.AppendRow(table.Row{r.SourceID, r.InterestRate, r.APR, r.Points, r.Timestamp})
		}
		t.AppendFooter(table.Row{"", "", "", "succeeded", fmt.Sprintf("%d/%d", len(results), len(names))})
		t.Render()

		if len(results) < len(names) {
			cmd.SilenceUsage = true
			return fmt.Errorf("%d of %d sources failed", len(names)-len(results), len(names))
		}
		return nil
	},
}
