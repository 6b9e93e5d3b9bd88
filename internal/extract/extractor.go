package extract

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/maltedev/mortgage-rate-scraper/internal/browser"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/maltedev/mortgage-rate-scraper/internal/sources"
)

const DefaultTimeout = 10 * time.Second

// decimalPattern admits plain decimal notation only. strconv.ParseFloat alone
// would also take NaN, Inf, hex floats and underscores.
var decimalPattern = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// Extractor reads the configured rate fields off the current page.
type Extractor struct {
	timeout time.Duration
	logger  *slog.Logger
}

func NewExtractor(timeout time.Duration, logger *slog.Logger) *Extractor {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{
		timeout: timeout,
		logger:  logger.With("component", "rate_extractor"),
	}
}

// Extract never returns an error: any failure is folded into a result with
// Error set and zeroed numeric fields.
func (e *Extractor) Extract(ctx context.Context, page browser.Page, sourceID string, selectors map[string]string) models.RateResult {
	result, err := e.extract(ctx, page, sourceID, selectors)
	if err != nil {
		e.logger.Error("failed to extract rates", "source", sourceID, "error", err)
		return models.NewFailedResult(sourceID, err)
	}

	e.logger.Info("extracted rates",
		"source", sourceID,
		"interest_rate", result.InterestRate,
		"apr", result.APR)
	return result
}

func (e *Extractor) extract(ctx context.Context, page browser.Page, sourceID string, selectors map[string]string) (models.RateResult, error) {
	rate, err := e.readNumber(ctx, page, selectors, sources.SelectorRate)
	if err != nil {
		return models.RateResult{}, err
	}

	apr, err := e.readNumber(ctx, page, selectors, sources.SelectorAPR)
	if err != nil {
		return models.RateResult{}, err
	}

	points, err := e.readOptional(ctx, page, selectors, sources.SelectorPoints)
	if err != nil {
		return models.RateResult{}, err
	}

	timestamp, err := e.readOptional(ctx, page, selectors, sources.SelectorTimestamp)
	if err != nil {
		return models.RateResult{}, err
	}

	return models.NewRateResult(sourceID, rate, apr, points, timestamp), nil
}

func (e *Extractor) readNumber(ctx context.Context, page browser.Page, selectors map[string]string, key string) (float64, error) {
	selector, ok := selectors[key]
	if !ok || selector == "" {
		return 0, fmt.Errorf("no %q selector configured", key)
	}

	text, err := e.readText(ctx, page, selector)
	if err != nil {
		return 0, err
	}

	value, err := ParsePercent(text)
	if err != nil {
		return 0, fmt.Errorf("%s selector %q: %w", key, selector, err)
	}
	return value, nil
}

func (e *Extractor) readOptional(ctx context.Context, page browser.Page, selectors map[string]string, key string) (string, error) {
	selector, ok := selectors[key]
	if !ok || selector == "" {
		return "", nil
	}
	return e.readText(ctx, page, selector)
}

func (e *Extractor) readText(ctx context.Context, page browser.Page, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	if err := page.WaitVisible(selector, e.timeout); err != nil {
		return "", err
	}

	text, err := page.TextContent(selector)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// ParsePercent converts text such as " 6.125% " into 6.125.
func ParsePercent(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimSpace(strings.TrimSuffix(cleaned, "%"))
	if !decimalPattern.MatchString(cleaned) {
		return 0, fmt.Errorf("cannot parse %q as a rate: not a decimal number", text)
	}

	value, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a rate: %w", text, err)
	}
	return value, nil
}
