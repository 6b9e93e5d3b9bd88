package sink

import (
	"context"
	"errors"
	"fmt"

	"github.com/maltedev/mortgage-rate-scraper/internal/models"
)

var (
	ErrPersistence        = errors.New("persistence failed")
	ErrMissingCredentials = errors.New("missing sink credentials")
)

// Sink persists extraction results to durable storage.
type Sink interface {
	Store(ctx context.Context, result models.RateResult) error
	// StoreBatch writes every result in a single operation. An empty batch is a no-op.
	StoreBatch(ctx context.Context, results []models.RateResult) error
}

// checkStorable rejects failed extractions; only successful results reach storage.
func checkStorable(results ...models.RateResult) error {
	for _, r := range results {
		if r.Failed() {
			return fmt.Errorf("%w: result for %q carries an error: %s", ErrPersistence, r.SourceID, r.Error)
		}
		if problems := r.Validate(); len(problems) > 0 {
			return fmt.Errorf("%w: invalid result for %q: %v", ErrPersistence, r.SourceID, problems)
		}
	}
	return nil
}
