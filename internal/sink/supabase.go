package sink

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
)

type SupabaseConfig struct {
	URL   string
	Key   string
	Table string
}

// SupabaseSink inserts rows through the PostgREST endpoint of a Supabase project.
type SupabaseSink struct {
	client *resty.Client
	table  string
	logger *slog.Logger
}

type supabaseRow struct {
	SourceID     string  `json:"source_id"`
	InterestRate float64 `json:"interest_rate"`
	APR          float64 `json:"apr"`
	Points       string  `json:"points"`
	Timestamp    string  `json:"timestamp"`
}

func NewSupabaseSink(cfg SupabaseConfig, logger *slog.Logger) (*SupabaseSink, error) {
	if cfg.URL == "" || cfg.Key == "" {
		return nil, fmt.Errorf("%w: SUPABASE_URL and SUPABASE_KEY are required", ErrMissingCredentials)
	}
	if cfg.Table == "" {
		cfg.Table = DefaultTable
	}
	if logger == nil {
		logger = slog.Default()
	}

	client := resty.New().
		SetBaseURL(cfg.URL).
		SetHeader("apikey", cfg.Key).
		SetAuthToken(cfg.Key).
		SetHeader("Content-Type", "application/json").
		SetHeader("Prefer", "return=minimal").
		SetTimeout(30 * time.Second)

	return &SupabaseSink{
		client: client,
		table:  cfg.Table,
		logger: logger.With("component", "supabase_sink"),
	}, nil
}

func (s *SupabaseSink) Store(ctx context.Context, result models.RateResult) error {
	if err := checkStorable(result); err != nil {
		return err
	}
	if err := s.post(ctx, toRow(result)); err != nil {
		return err
	}
	s.logger.Info("stored rate", "source", result.SourceID)
	return nil
}

func (s *SupabaseSink) StoreBatch(ctx context.Context, results []models.RateResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := checkStorable(results...); err != nil {
		return err
	}

	rows := make([]supabaseRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, toRow(r))
	}
	if err := s.post(ctx, rows); err != nil {
		return err
	}
	s.logger.Info("stored rate batch", "count", len(rows))
	return nil
}

func (s *SupabaseSink) post(ctx context.Context, body interface{}) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		Post("/rest/v1/" + s.table)
	if err != nil {
		return fmt.Errorf("%w: supabase request failed: %w", ErrPersistence, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: supabase returned %d: %s", ErrPersistence, resp.StatusCode(), resp.String())
	}
	return nil
}

func toRow(r models.RateResult) supabaseRow {
	return supabaseRow{
		SourceID:     r.SourceID,
		InterestRate: r.InterestRate,
		APR:          r.APR,
		Points:       r.Points,
		Timestamp:    r.Timestamp,
	}
}
