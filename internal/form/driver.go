package form

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/ratelimit"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
)

const DefaultTimeout = 10 * time.Second

// Driver replays a source's form sequence against a page.
type Driver struct {
	timeout time.Duration
	pacer   ratelimit.Pacer
	logger  *slog.Logger
}

func NewDriver(timeout time.Duration, pacer ratelimit.Pacer, logger *slog.Logger) *Driver {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if pacer == nil {
		pacer = ratelimit.NewFixedPacer(500 * time.Millisecond)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		timeout: timeout,
		pacer:   pacer,
		logger:  logger.With("component", "form_driver"),
	}
}

// Fill runs the steps in order and stops at the first failure. It returns
// only after the page has reached network idle and DOM content loaded.
func (d *Driver) Fill(ctx context.Context, page browser.Page, steps []sources.FormStep, fields map[string]string) error {
	for i, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := page.WaitVisible(step.Selector, d.timeout); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}

		if err := d.execute(page, step, fields); err != nil {
			return fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}

		if err := d.pacer.Pause(ctx); err != nil {
			return err
		}
	}

	if err := page.WaitForLoadState(browser.LoadStateNetworkIdle); err != nil {
		return fmt.Errorf("after form submit: %w", err)
	}
	if err := page.WaitForLoadState(browser.LoadStateDOMContentLoaded); err != nil {
		return fmt.Errorf("after form submit: %w", err)
	}

	d.logger.Debug("form sequence completed", "steps", len(steps))
	return nil
}

func (d *Driver) execute(page browser.Page, step sources.FormStep, fields map[string]string) error {
	switch step.Action {
	case sources.ActionType:
		value, ok := fields[step.ValueKey]
		if !ok {
			return fmt.Errorf("%w: form field %q is not defined", sources.ErrInvalidConfig, step.ValueKey)
		}
		if err := page.Fill(step.Selector, value); err != nil {
			return err
		}
		d.logger.Info("filled field", "selector", step.Selector, "value_key", step.ValueKey)
	case sources.ActionClick:
		if err := page.Click(step.Selector); err != nil {
			return err
		}
		d.logger.Info("clicked", "selector", step.Selector)
	case sources.ActionWait:
		d.logger.Info("waited for element", "selector", step.Selector)
	default:
		return fmt.Errorf("%w: unsupported action %s", sources.ErrInvalidConfig, step.Action)
	}
	return nil
}
