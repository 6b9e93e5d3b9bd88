package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/maltedev/mortgage-rate-scraper/internal/models"
)

// FileSink keeps every stored result in a JSON array on disk. Meant for
// local runs without a database.
type FileSink struct {
	mu       sync.Mutex
	results  []models.RateResult
	filename string
	logger   *slog.Logger
}

func NewFileSink(filename string, logger *slog.Logger) (*FileSink, error) {
	if filename == "" {
		return nil, fmt.Errorf("file sink needs a path")
	}
	if logger == nil {
		logger = slog.Default()
	}
	fs := &FileSink{
		filename: filename,
		logger:   logger.With("component", "file_sink"),
	}

	if err := fs.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	return fs, nil
}

func (fs *FileSink) Store(ctx context.Context, result models.RateResult) error {
	return fs.StoreBatch(ctx, []models.RateResult{result})
}

// StoreBatch rewrites the file once for the whole batch.
func (fs *FileSink) StoreBatch(ctx context.Context, results []models.RateResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := checkStorable(results...); err != nil {
		return err
	}

	fs.mu.Lock()
	defer fs.mu.Unlock()

	next := append(append([]models.RateResult{}, fs.results...), results...)
	if err := fs.save(next); err != nil {
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	fs.results = next

	fs.logger.Info("stored rates", "count", len(results), "file", fs.filename)
	return nil
}

// Results returns a copy of everything stored so far.
func (fs *FileSink) Results() []models.RateResult {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]models.RateResult{}, fs.results...)
}

func (fs *FileSink) save(results []models.RateResult) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}

	tmpFile := fs.filename + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmpFile, fs.filename)
}

func (fs *FileSink) load() error {
	data, err := os.ReadFile(fs.filename)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, &fs.results)
}
