package commands

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(checkCmd)
}

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Lists the configured sources.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store := sources.NewStore(cfg.Scraper.SourcesDir)

		names, err := store.List()
		if err != nil {
			return err
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Source", "URL", "Form steps"})
		for _, name := range names {
			src, err := store.Load(name)
			if err != nil {
				t.AppendRow(table.Row{name, err.Error(), "-"})
				continue
			}
			t.AppendRow(table.Row{name, src.URL, len(src.FormSequence)})
		}
		t.Render()
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check [source...]",
	Short: "Validates source descriptors without opening a browser. Checks every source when none are given.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		store := sources.NewStore(cfg.Scraper.SourcesDir)

		names := args
		if len(names) == 0 {
			if names, err = store.List(); err != nil {
				return err
			}
		}

		t := newTable(cmd)
		t.AppendHeader(table.Row{"Source", "Status"})
		failed := 0
		for _, name := range names {
			if _, err := store.Load(name); err != nil {
				failed++
				t.AppendRow(table.Row{name, err.Error()})
				continue
			}
			t.AppendRow(table.Row{name, "ok"})
		}
		t.Render()

		if failed > 0 {
			cmd.SilenceUsage = true
			return fmt.Errorf("%d of %d sources are invalid", failed, len(names))
		}
		return nil
	},
}
