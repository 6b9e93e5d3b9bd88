package app

import (
	"errors"
	"testing"
	"time"

	"github.com/maltedev/mortgage-rate-scraper/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestBrowserOptions(t *testing.T) {
	opts := BrowserOptions(config.BrowserConfig{
		Headless:       false,
		Timeout:        45 * time.Second,
		UserAgent:      "test-agent",
		ViewportWidth:  1280,
		ViewportHeight: 800,
		Locale:         "en-GB",
		TimezoneID:     "Europe/London",
	})

	assert.False(t, opts.Headless)
	assert.Equal(t, 45*time.Second, opts.Timeout)
	assert.Equal(t, "test-agent", opts.UserAgent)
	assert.Equal(t, 1280, opts.ViewportWidth)
	assert.Equal(t, "Europe/London", opts.TimezoneID)
	assert.NotEmpty(t, opts.ExtraHeaders)
}

func TestCloseRunsInReverse(t *testing.T) {
	var order []string
	boom := errors.New("boom")
	a := &App{closers: []func() error{
		func() error { order = append(order, "db"); return nil },
		func() error { order = append(order, "redis"); return boom },
		func() error { order = append(order, "browser"); return nil },
	}}

	err := a.Close()
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"browser", "redis", "db"}, order)

	assert.NoError(t, a.Close(), "second close is a no-op")
}
