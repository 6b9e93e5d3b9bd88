package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Launcher owns the playwright driver and one Chromium process. Every
// Acquire gets its own isolated browser context.
type Launcher struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	opts    *Options
	logger  *slog.Logger
}

type Options struct {
	Headless       bool
	Timeout        time.Duration
	UserAgent      string
	ViewportWidth  int
	ViewportHeight int
	Locale         string
	TimezoneID     string
	ProxyServer    string
	MaskWebdriver  bool
	ExtraHeaders   map[string]string
}

func DefaultOptions() *Options {
	return &Options{
		Headless:       true,
		Timeout:        30 * time.Second,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		ViewportWidth:  1920,
		ViewportHeight: 1080,
		Locale:         "en-US",
		TimezoneID:     "America/New_York",
		ExtraHeaders: map[string]string{
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
	}
}

func (o *Options) withDefaults() *Options {
	d := DefaultOptions()
	if o == nil {
		return d
	}
	out := *o
	if out.Timeout <= 0 {
		out.Timeout = d.Timeout
	}
	if out.UserAgent == "" {
		out.UserAgent = d.UserAgent
	}
	if out.ViewportWidth <= 0 || out.ViewportHeight <= 0 {
		out.ViewportWidth, out.ViewportHeight = d.ViewportWidth, d.ViewportHeight
	}
	if out.Locale == "" {
		out.Locale = d.Locale
	}
	if out.TimezoneID == "" {
		out.TimezoneID = d.TimezoneID
	}
	if out.ExtraHeaders == nil {
		out.ExtraHeaders = d.ExtraHeaders
	}
	return &out
}

const webdriverMask = `Object.defineProperty(navigator, 'webdriver', { get: () => undefined });`

func New(opts *Options, logger *slog.Logger) (*Launcher, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}

	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to start playwright: %w", ErrSession, err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: &opts.Headless,
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--no-sandbox",
			fmt.Sprintf("--window-size=%d,%d", opts.ViewportWidth, opts.ViewportHeight),
		},
	}

	if opts.ProxyServer != "" {
		launchOpts.Proxy = &playwright.Proxy{
			Server: opts.ProxyServer,
		}
	}

	browser, err := pw.Chromium.Launch(launchOpts)
	if err != nil {
		pw.Stop()
		return nil, fmt.Errorf("%w: failed to launch browser: %w", ErrSession, err)
	}

	return &Launcher{
		pw:      pw,
		browser: browser,
		opts:    opts,
		logger:  logger.With("component", "browser"),
	}, nil
}

// Acquire opens a new isolated context with a single page. The caller owns
// the session and must Release it.
func (l *Launcher) Acquire(ctx context.Context) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSession, err)
	}

	bctx, err := l.browser.NewContext(playwright.BrowserNewContextOptions{
		UserAgent:         &l.opts.UserAgent,
		AcceptDownloads:   playwright.Bool(false),
		JavaScriptEnabled: playwright.Bool(true),
		Locale:            &l.opts.Locale,
		TimezoneId:        &l.opts.TimezoneID,
		Viewport: &playwright.Size{
			Width:  l.opts.ViewportWidth,
			Height: l.opts.ViewportHeight,
		},
		ExtraHttpHeaders: l.opts.ExtraHeaders,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create browser context: %w", ErrSession, err)
	}

	if l.opts.MaskWebdriver {
		if err := bctx.AddInitScript(playwright.Script{Content: playwright.String(webdriverMask)}); err != nil {
			bctx.Close()
			return nil, fmt.Errorf("%w: failed to add init script: %w", ErrSession, err)
		}
	}

	page, err := bctx.NewPage()
	if err != nil {
		bctx.Close()
		return nil, fmt.Errorf("%w: failed to create new page: %w", ErrSession, err)
	}

	page.SetDefaultTimeout(float64(l.opts.Timeout.Milliseconds()))

	logger := l.logger
	page.OnConsole(func(msg playwright.ConsoleMessage) {
		logger.Debug("browser console", "text", msg.Text())
	})
	page.OnPageError(func(err error) {
		logger.Error("browser page error", "error", err)
	})

	teardown := func() error { return bctx.Close() }
	return newSession(wrapPage(page), teardown, l.opts.Timeout, logger), nil
}

func (l *Launcher) Close() error {
	var errs []error

	if l.browser != nil {
		if err := l.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
		}
	}

	if l.pw != nil {
		if err := l.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during close: %v", errs)
	}

	return nil
}

// ScopedSession is what a single pipeline run sees of its session.
type ScopedSession interface {
	Navigate(ctx context.Context, url string) error
	Page() Page
	Release() error
}

// SessionProvider hands out a fresh, unshared session per call.
type SessionProvider interface {
	Acquire(ctx context.Context) (ScopedSession, error)
}

type launcherProvider struct {
	launcher *Launcher
}

// Provider exposes the launcher as a SessionProvider.
func (l *Launcher) Provider() SessionProvider {
	return launcherProvider{launcher: l}
}

func (p launcherProvider) Acquire(ctx context.Context) (ScopedSession, error) {
	s, err := p.launcher.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Session is one page in one isolated context, used for exactly one run.
type Session struct {
	page     Page
	teardown func() error
	timeout  time.Duration
	logger   *slog.Logger

	once sync.Once
}

func newSession(page Page, teardown func() error, timeout time.Duration, logger *slog.Logger) *Session {
	return &Session{
		page:     page,
		teardown: teardown,
		timeout:  timeout,
		logger:   logger,
	}
}

// NewSession wraps an existing page. Used by tests and alternative drivers.
func NewSession(page Page, teardown func() error, timeout time.Duration) *Session {
	return newSession(page, teardown, timeout, slog.Default().With("component", "browser"))
}

func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrSession, err)
	}
	s.logger.Info("navigating", "url", url)
	return s.page.Goto(url, s.timeout)
}

func (s *Session) Page() Page {
	return s.page
}

// Release tears the context down. Only the first call does any work;
// later calls return nil.
func (s *Session) Release() error {
	var err error
	s.once.Do(func() {
		if s.teardown == nil {
			return
		}
		if cerr := s.teardown(); cerr != nil {
			err = fmt.Errorf("%w: failed to close context: %w", ErrSession, cerr)
		}
	})
	return err
}
