package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/config"
	"github.com/maltedev/mortgage-rate-scraper/internal/database"
	"github.com/maltedev/mortgage-rate-scraper/internal/events"
	"github.com/maltedev/mortgage-rate-scraper/internal/extract"
	"github.com/maltedev/mortgage-rate-scraper/internal/form"
	"github.com/maltedev/mortgage-rate-scraper/internal/ratelimit"
	"github.com/maltedev/mortgage-rate-scraper/internal/sink"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
	"github.com/maltedev/mortgage-rate-scraper/internal/workflow"
)

// App holds the long-lived dependencies shared by the API server and the CLI.
type App struct {
	Sources      *sources.Store
	Launcher     *browser.Launcher
	Orchestrator *workflow.Orchestrator

	closers []func() error
	logger  *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{
		Sources: sources.NewStore(cfg.Scraper.SourcesDir),
		logger:  logger,
	}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	store, err := a.newSink(ctx, cfg)
	if err != nil {
		return nil, err
	}

	var notifier workflow.Notifier
	if cfg.Redis.Addr != "" {
		publisher, err := events.NewRedisPublisher(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.Stream, logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, publisher.Close)
		notifier = publisher
	} else {
		logger.Info("REDIS_ADDR not set, rate events disabled")
	}

	launcher, err := browser.New(BrowserOptions(cfg.Browser), logger)
	if err != nil {
		return nil, err
	}
	a.Launcher = launcher
	a.closers = append(a.closers, launcher.Close)

	a.Orchestrator = workflow.New(
		a.Sources,
		launcher.Provider(),
		form.NewDriver(cfg.Scraper.WaitTimeout, ratelimit.NewFixedPacer(cfg.Scraper.StepPause), logger),
		extract.NewExtractor(cfg.Scraper.WaitTimeout, logger),
		store,
		workflow.Options{
			MaxSessions:  cfg.Scraper.MaxSessions,
			BatchPersist: cfg.Scraper.BatchPersist,
			Notifier:     notifier,
			Logger:       logger,
		},
	)

	return a, nil
}

func (a *App) newSink(ctx context.Context, cfg *config.Config) (sink.Sink, error) {
	switch cfg.Sink.Backend {
	case config.SinkSupabase:
		return sink.NewSupabaseSink(sink.SupabaseConfig{
			URL:   cfg.Supabase.URL,
			Key:   cfg.Supabase.Key,
			Table: cfg.Supabase.Table,
		}, a.logger)
	case config.SinkFile:
		return sink.NewFileSink(cfg.Sink.File, a.logger)
	case config.SinkPostgres:
		db, err := database.New(ctx, database.Config{
			DSN:      cfg.Database.DSN(),
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() error { db.Close(); return nil })

		if err := db.Migrate(ctx, cfg.Database.Table); err != nil {
			return nil, err
		}
		return sink.NewPostgresSink(db, cfg.Database.Table, a.logger), nil
	default:
		return nil, fmt.Errorf("unknown sink backend %q", cfg.Sink.Backend)
	}
}

func BrowserOptions(cfg config.BrowserConfig) *browser.Options {
	opts := browser.DefaultOptions()
	opts.Headless = cfg.Headless
	opts.Timeout = cfg.Timeout
	opts.UserAgent = cfg.UserAgent
	opts.ViewportWidth = cfg.ViewportWidth
	opts.ViewportHeight = cfg.ViewportHeight
	opts.Locale = cfg.Locale
	opts.TimezoneID = cfg.TimezoneID
	return opts
}

// Close releases everything in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
