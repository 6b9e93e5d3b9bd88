package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/llm"
	"github.com/maltedev/mortgage-rate-scraper/internal/ratelimit"
)

const (
	DefaultSearchURL  = "https://www.google.com"
	DefaultMaxResults = 5

	searchBoxSelector = `textarea[name="q"]`
)

var ErrNoResults = errors.New("no search results found")

type Completer interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

type Config struct {
	SearchURL  string
	MaxResults int
	TypeDelay  time.Duration
	// Settle is paused before pressing Enter and again after the results load.
	Settle ratelimit.Pacer
}

// Agent searches the web in a real browser and has an LLM summarise the hits.
type Agent struct {
	sessions browser.SessionProvider
	llm      Completer
	cfg      Config
	logger   *slog.Logger
}

func New(sessions browser.SessionProvider, completer Completer, cfg Config, logger *slog.Logger) *Agent {
	if cfg.SearchURL == "" {
		cfg.SearchURL = DefaultSearchURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultMaxResults
	}
	if cfg.TypeDelay < 0 {
		cfg.TypeDelay = 0
	}
	if cfg.Settle == nil {
		cfg.Settle = ratelimit.NewJitterPacer(time.Second, 2*time.Second)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		sessions: sessions,
		llm:      completer,
		cfg:      cfg,
		logger:   logger.With("component", "browser_agent"),
	}
}

// Search types the task into the search box and returns the parsed results.
func (a *Agent) Search(ctx context.Context, task string) ([]SearchResult, error) {
	session, err := a.sessions.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rerr := session.Release(); rerr != nil {
			a.logger.Warn("failed to release session", "error", rerr)
		}
	}()

	if err := session.Navigate(ctx, a.cfg.SearchURL); err != nil {
		return nil, fmt.Errorf("failed to open search page: %w", err)
	}

	page := session.Page()
	if err := page.Click(searchBoxSelector); err != nil {
		return nil, fmt.Errorf("failed to focus search box: %w", err)
	}
	if err := page.Type(searchBoxSelector, task, a.cfg.TypeDelay); err != nil {
		return nil, fmt.Errorf("failed to type query: %w", err)
	}
	if err := a.cfg.Settle.Pause(ctx); err != nil {
		return nil, err
	}
	if err := page.Press(searchBoxSelector, "Enter"); err != nil {
		return nil, fmt.Errorf("failed to submit query: %w", err)
	}
	if err := page.WaitForLoadState(browser.LoadStateNetworkIdle); err != nil {
		return nil, fmt.Errorf("failed waiting for results: %w", err)
	}
	if err := a.cfg.Settle.Pause(ctx); err != nil {
		return nil, err
	}

	html, err := page.Content()
	if err != nil {
		return nil, err
	}

	results, err := ParseResults(html, a.cfg.SearchURL, a.cfg.MaxResults)
	if err != nil {
		return nil, err
	}

	a.logger.Info("search completed", "task", task, "results", len(results))
	return results, nil
}

// Run searches for task and returns the LLM's summary of the results.
func (a *Agent) Run(ctx context.Context, task string) (string, error) {
	results, err := a.Search(ctx, task)
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w for %q", ErrNoResults, task)
	}

	summary, err := a.llm.Complete(ctx, []llm.Message{llm.UserMessage(buildPrompt(task, results))})
	if err != nil {
		return "", fmt.Errorf("failed to summarise results: %w", err)
	}
	return summary, nil
}

func buildPrompt(task string, results []SearchResult) string {
	return fmt.Sprintf(`Please analyze these search results about %s.
Focus on recent data points from reliable sources and any location-specific information.

If you find relevant information, summarize it. If you don't find the exact information, mention what related information you found.

Search Results:
%s`, task, FormatResults(results))
}
