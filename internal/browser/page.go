package browser

import (
	"errors"
	"fmt"
	"time"

	"github.com/playwright-community/playwright-go"
)

var (
	ErrSession        = errors.New("browser session error")
	ErrElementTimeout = errors.New("element did not become visible in time")
	ErrElementAction  = errors.New("element action failed")
)

type LoadState string

const (
	LoadStateNetworkIdle      LoadState = "networkidle"
	LoadStateDOMContentLoaded LoadState = "domcontentloaded"
	LoadStateLoad             LoadState = "load"
)

// Page is the set of page operations the form driver, the rate extractor
// and the browser agent rely on.
type Page interface {
	Goto(url string, timeout time.Duration) error
	WaitVisible(selector string, timeout time.Duration) error
	Fill(selector, value string) error
	Click(selector string) error
	Type(selector, text string, delay time.Duration) error
	Press(selector, key string) error
	TextContent(selector string) (string, error)
	Content() (string, error)
	WaitForLoadState(state LoadState) error
}

type playwrightPage struct {
	page playwright.Page
}

func wrapPage(p playwright.Page) Page {
	return &playwrightPage{page: p}
}

func (p *playwrightPage) Goto(url string, timeout time.Duration) error {
	_, err := p.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to navigate to %s: %w", ErrSession, url, err)
	}
	return nil
}

func (p *playwrightPage) WaitVisible(selector string, timeout time.Duration) error {
	err := p.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return classify(selector, "wait", err)
}

func (p *playwrightPage) Fill(selector, value string) error {
	return classify(selector, "fill", p.page.Locator(selector).First().Fill(value))
}

func (p *playwrightPage) Click(selector string) error {
	return classify(selector, "click", p.page.Locator(selector).First().Click())
}

func (p *playwrightPage) Type(selector, text string, delay time.Duration) error {
	err := p.page.Locator(selector).First().PressSequentially(text, playwright.LocatorPressSequentiallyOptions{
		Delay: playwright.Float(float64(delay.Milliseconds())),
	})
	return classify(selector, "type", err)
}

func (p *playwrightPage) Press(selector, key string) error {
	return classify(selector, "press", p.page.Locator(selector).First().Press(key))
}

func (p *playwrightPage) TextContent(selector string) (string, error) {
	text, err := p.page.Locator(selector).First().TextContent()
	if err != nil {
		return "", classify(selector, "read", err)
	}
	return text, nil
}

func (p *playwrightPage) Content() (string, error) {
	html, err := p.page.Content()
	if err != nil {
		return "", fmt.Errorf("%w: failed to read page content: %w", ErrSession, err)
	}
	return html, nil
}

func (p *playwrightPage) WaitForLoadState(state LoadState) error {
	var s *playwright.LoadState
	switch state {
	case LoadStateNetworkIdle:
		s = playwright.LoadStateNetworkidle
	case LoadStateDOMContentLoaded:
		s = playwright.LoadStateDomcontentloaded
	default:
		s = playwright.LoadStateLoad
	}

	if err := p.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{State: s}); err != nil {
		return fmt.Errorf("%w: waiting for %s: %w", ErrElementTimeout, state, err)
	}
	return nil
}

func classify(selector, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %s %q: %w", ErrElementTimeout, op, selector, err)
	}
	return fmt.Errorf("%w: %s %q: %w", ErrElementAction, op, selector, err)
}
