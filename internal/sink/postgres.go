package sink

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
)

const DefaultTable = "mortgage_rates"

var rateColumns = []string{"id", "source_id", "interest_rate", "apr", "points", "timestamp"}

// Writer is the subset of *database.DB the postgres sink needs.
type Writer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, rows pgx.CopyFromSource) (int64, error)
}

type PostgresSink struct {
	db     Writer
	table  string
	logger *slog.Logger
}

func NewPostgresSink(db Writer, table string, logger *slog.Logger) *PostgresSink {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresSink{
		db:     db,
		table:  table,
		logger: logger.With("component", "postgres_sink"),
	}
}

func (s *PostgresSink) Store(ctx context.Context, result models.RateResult) error {
	if err := checkStorable(result); err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, source_id, interest_rate, apr, points, "timestamp")
		VALUES ($1, $2, $3, $4, $5, $6)`, pgx.Identifier{s.table}.Sanitize())

	_, err := s.db.Exec(ctx, query,
		uuid.New(),
		result.SourceID,
		result.InterestRate,
		result.APR,
		result.Points,
		result.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to insert rate for %s: %w", ErrPersistence, result.SourceID, err)
	}

	s.logger.Info("stored rate", "source", result.SourceID)
	return nil
}

func (s *PostgresSink) StoreBatch(ctx context.Context, results []models.RateResult) error {
	if len(results) == 0 {
		return nil
	}
	if err := checkStorable(results...); err != nil {
		return err
	}

	rows := make([][]interface{}, 0, len(results))
	for _, r := range results {
		rows = append(rows, []interface{}{
			uuid.New(), r.SourceID, r.InterestRate, r.APR, r.Points, r.Timestamp,
		})
	}

	n, err := s.db.CopyFrom(ctx, pgx.Identifier{s.table}, rateColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("%w: failed to copy %d rates: %w", ErrPersistence, len(rows), err)
	}

	s.logger.Info("stored rate batch", "count", n)
	return nil
}
