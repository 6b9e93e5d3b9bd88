package form

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/ratelimit"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingPage logs every call in order.
type recordingPage struct {
	browser.Page
	calls   []string
	missing map[string]bool
	failOn  string
}

func (p *recordingPage) WaitVisible(selector string, timeout time.Duration) error {
	p.calls = append(p.calls, "wait:"+selector)
	if p.missing[selector] {
		return fmt.Errorf("%w: wait %q", browser.ErrElementTimeout, selector)
	}
	return nil
}

func (p *recordingPage) Fill(selector, value string) error {
	p.calls = append(p.calls, "fill:"+selector+"="+value)
	if p.failOn == selector {
		return fmt.Errorf("%w: fill %q", browser.ErrElementAction, selector)
	}
	return nil
}

func (p *recordingPage) Click(selector string) error {
	p.calls = append(p.calls, "click:"+selector)
	if p.failOn == selector {
		return fmt.Errorf("%w: click %q", browser.ErrElementAction, selector)
	}
	return nil
}

func (p *recordingPage) WaitForLoadState(state browser.LoadState) error {
	p.calls = append(p.calls, "load:"+string(state))
	return nil
}

type countingPacer struct {
	pauses int
}

func (c *countingPacer) Pause(ctx context.Context) error {
	c.pauses++
	return nil
}

func TestDriver_FillOrdersSteps(t *testing.T) {
	page := &recordingPage{}
	pacer := &countingPacer{}
	d := NewDriver(time.Second, pacer, nil)

	steps := []sources.FormStep{
		{Action: sources.ActionType, Selector: "A", ValueKey: "K"},
		{Action: sources.ActionClick, Selector: "B"},
		{Action: sources.ActionWait, Selector: "C"},
	}

	err := d.Fill(context.Background(), page, steps, map[string]string{"K": "94105"})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"wait:A",
		"fill:A=94105",
		"wait:B",
		"click:B",
		"wait:C",
		"load:networkidle",
		"load:domcontentloaded",
	}, page.calls)
	assert.Equal(t, 3, pacer.pauses)
}

func TestDriver_FillTimeoutAborts(t *testing.T) {
	page := &recordingPage{missing: map[string]bool{"B": true}}
	d := NewDriver(time.Second, ratelimit.NoPause{}, nil)

	steps := []sources.FormStep{
		{Action: sources.ActionClick, Selector: "A"},
		{Action: sources.ActionClick, Selector: "B"},
		{Action: sources.ActionClick, Selector: "C"},
	}

	err := d.Fill(context.Background(), page, steps, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, browser.ErrElementTimeout)
	assert.Contains(t, err.Error(), "step 1")

	assert.Equal(t, []string{"wait:A", "click:A", "wait:B"}, page.calls)
}

func TestDriver_FillActionErrorAborts(t *testing.T) {
	page := &recordingPage{failOn: "#zip"}
	d := NewDriver(time.Second, ratelimit.NoPause{}, nil)

	steps := []sources.FormStep{
		{Action: sources.ActionType, Selector: "#zip", ValueKey: "zip"},
		{Action: sources.ActionClick, Selector: "#go"},
	}

	err := d.Fill(context.Background(), page, steps, map[string]string{"zip": "10001"})
	assert.ErrorIs(t, err, browser.ErrElementAction)
	assert.NotContains(t, page.calls, "click:#go")
}

func TestDriver_FillMissingField(t *testing.T) {
	page := &recordingPage{}
	d := NewDriver(time.Second, ratelimit.NoPause{}, nil)

	steps := []sources.FormStep{{Action: sources.ActionType, Selector: "#zip", ValueKey: "zip"}}

	err := d.Fill(context.Background(), page, steps, map[string]string{})
	assert.ErrorIs(t, err, sources.ErrInvalidConfig)
}

func TestDriver_FillCancelled(t *testing.T) {
	page := &recordingPage{}
	d := NewDriver(time.Second, ratelimit.NoPause{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := d.Fill(ctx, page, []sources.FormStep{{Action: sources.ActionClick, Selector: "#go"}}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, page.calls)
}

func TestNewDriverDefaults(t *testing.T) {
	d := NewDriver(0, nil, nil)
	assert.Equal(t, DefaultTimeout, d.timeout)
	assert.NotNil(t, d.pacer)
}
