package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/maltedev/mortgage-rate-scraper/internal/sink"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
	"golang.org/x/sync/errgroup"
)

const DefaultMaxSessions = 4

// Stage names a step of the per-source pipeline.
type Stage string

const (
	StageLoadConfig  Stage = "load_config"
	StageOpenSession Stage = "open_session"
	StageFillForm    Stage = "fill_form"
	StageExtract     Stage = "extract"
	StagePersist     Stage = "persist"
)

var (
	ErrExtraction = errors.New("extraction failed")
	ErrPanic      = errors.New("pipeline panicked")
)

// StageError reports which stage of a source's pipeline failed.
type StageError struct {
	Source string
	Stage  Stage
	Err    error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.Source, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

type ConfigLoader interface {
	Load(name string) (*sources.SourceConfig, error)
}

type FormFiller interface {
	Fill(ctx context.Context, page browser.Page, steps []sources.FormStep, fields map[string]string) error
}

type Extractor interface {
	Extract(ctx context.Context, page browser.Page, sourceID string, selectors map[string]string) models.RateResult
}

// Notifier is told about every result that reached storage.
type Notifier interface {
	Notify(ctx context.Context, result models.RateResult)
}

type Options struct {
	MaxSessions int
	// BatchPersist makes RunMany write all successes with one StoreBatch
	// instead of one Store per source.
	BatchPersist bool
	Notifier     Notifier
	Logger       *slog.Logger
}

type Orchestrator struct {
	configs   ConfigLoader
	sessions  browser.SessionProvider
	filler    FormFiller
	extractor Extractor
	sink      sink.Sink
	notifier  Notifier

	maxSessions  int
	batchPersist bool
	logger       *slog.Logger
}

func New(configs ConfigLoader, sessions browser.SessionProvider, filler FormFiller, extractor Extractor, s sink.Sink, opts Options) *Orchestrator {
	if opts.MaxSessions < 1 {
		opts.MaxSessions = DefaultMaxSessions
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Orchestrator{
		configs:      configs,
		sessions:     sessions,
		filler:       filler,
		extractor:    extractor,
		sink:         s,
		notifier:     opts.Notifier,
		maxSessions:  opts.MaxSessions,
		batchPersist: opts.BatchPersist,
		logger:       opts.Logger.With("component", "orchestrator"),
	}
}

// RunOne scrapes and persists a single source. On failure the result is nil
// and the error is a *StageError.
func (o *Orchestrator) RunOne(ctx context.Context, name string) (*models.RateResult, error) {
	result, err := o.run(ctx, name, true)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RunMany runs every pipeline with at most MaxSessions in flight. Failed
// sources are dropped; the rest keep their input order.
func (o *Orchestrator) RunMany(ctx context.Context, names []string) []models.RateResult {
	slots := make([]*models.RateResult, len(names))

	var g errgroup.Group
	g.SetLimit(o.maxSessions)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			result, err := o.run(ctx, name, !o.batchPersist)
			if err != nil {
				return nil
			}
			slots[i] = result
			return nil
		})
	}
	_ = g.Wait()

	results := make([]models.RateResult, 0, len(names))
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}

	if o.batchPersist && len(results) > 0 {
		if err := o.sink.StoreBatch(ctx, results); err != nil {
			o.logger.Error("failed to persist batch", "count", len(results), "error", err)
			return []models.RateResult{}
		}
		for _, r := range results {
			o.notify(ctx, r)
		}
	}

	o.logger.Info("batch completed", "requested", len(names), "succeeded", len(results))
	return results
}

func (o *Orchestrator) run(ctx context.Context, name string, persist bool) (result *models.RateResult, err error) {
	stage := StageLoadConfig
	logger := o.logger.With("source", name)

	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &StageError{Source: name, Stage: stage, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
		if err != nil {
			logger.Error("pipeline failed", "stage", stage, "error", err)
		}
	}()

	fail := func(cause error) (*models.RateResult, error) {
		return nil, &StageError{Source: name, Stage: stage, Err: cause}
	}

	cfg, err := o.configs.Load(name)
	if err != nil {
		return fail(err)
	}
	sourceID := cfg.Name
	if sourceID == "" {
		sourceID = name
	}

	stage = StageOpenSession
	session, err := o.sessions.Acquire(ctx)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if rerr := session.Release(); rerr != nil {
			logger.Warn("failed to release session", "error", rerr)
		}
	}()

	if err := session.Navigate(ctx, cfg.URL); err != nil {
		return fail(err)
	}

	if cfg.RequiresForm {
		stage = StageFillForm
		if err := o.filler.Fill(ctx, session.Page(), cfg.FormSequence, cfg.FormFields); err != nil {
			return fail(err)
		}
	}

	stage = StageExtract
	extracted := o.extractor.Extract(ctx, session.Page(), sourceID, cfg.Selectors)
	if extracted.Failed() {
		return fail(fmt.Errorf("%w: %s", ErrExtraction, extracted.Error))
	}
	if problems := extracted.Validate(); len(problems) > 0 {
		return fail(fmt.Errorf("%w: %s", ErrExtraction, strings.Join(problems, "; ")))
	}

	if persist {
		stage = StagePersist
		if err := o.sink.Store(ctx, extracted); err != nil {
			return fail(err)
		}
		o.notify(ctx, extracted)
	}

	logger.Info("pipeline completed",
		"interest_rate", extracted.InterestRate,
		"apr", extracted.APR)
	return &extracted, nil
}

func (o *Orchestrator) notify(ctx context.Context, result models.RateResult) {
	if o.notifier != nil {
		o.notifier.Notify(ctx, result)
	}
}
