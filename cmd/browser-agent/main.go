package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/maltedev/mortgage-rate-scraper/internal/agent"
	"github.com/maltedev/mortgage-rate-scraper/internal/app"
	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/config"
	"github.com/maltedev/mortgage-rate-scraper/internal/llm"
	"github.com/maltedev/mortgage-rate-scraper/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	headed     *bool
	maxResults *int
	noSummary  *bool
)

var rootCmd = &cobra.Command{
	Use:   "browser-agent <task>",
	Short: "Searches the web for a task in a real browser and summarises the results with an LLM.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

func init() {
	headed = rootCmd.Flags().Bool("headed", false, "Show the browser window.")
	maxResults = rootCmd.Flags().Int("max-results", 0, "Number of results to keep (overrides AGENT_MAX_RESULTS).")
	noSummary = rootCmd.Flags().Bool("no-summary", false, "Print the parsed results instead of asking the LLM.")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	task := strings.Join(args, " ")

	var completer agent.Completer
	if !*noSummary {
		client, err := llm.NewClient(llm.Config{
			BaseURL: cfg.Agent.LLMBaseURL,
			APIKey:  cfg.Agent.LLMAPIKey,
			Model:   cfg.Agent.LLMModel,
		}, log)
		if err != nil {
			return err
		}
		completer = client
	}

	opts := app.BrowserOptions(cfg.Browser)
	opts.MaskWebdriver = true
	if *headed {
		opts.Headless = false
	}
	launcher, err := browser.New(opts, log)
	if err != nil {
		return err
	}
	defer launcher.Close()

	if *maxResults > 0 {
		cfg.Agent.MaxResults = *maxResults
	}
	a := agent.New(launcher.Provider(), completer, agent.Config{
		SearchURL:  cfg.Agent.SearchURL,
		MaxResults: cfg.Agent.MaxResults,
		TypeDelay:  cfg.Agent.TypeDelay,
	}, log)

	cmd.SilenceUsage = true
	if *noSummary {
		results, err := a.Search(cmd.Context(), task)
		if err != nil {
			return err
		}
		t := table.NewWriter()
		t.SetStyle(table.StyleRounded)
		t.SetOutputMirror(cmd.OutOrStdout())
		t.AppendHeader(table.Row{"#", "Title", "URL"})
		for i, r := range results {
			t.AppendRow(table.Row{i + 1, r.Title, r.Link})
		}
		t.Render()
		return nil
	}

	summary, err := a.Run(cmd.Context(), task)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), summary)
	return nil
}
