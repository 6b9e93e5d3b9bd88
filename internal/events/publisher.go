package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/redis/go-redis/v9"
)

// EventType represents the type of event
type EventType string

const (
	// EventTypeRateScraped is published after a rate was extracted and stored
	EventTypeRateScraped EventType = "RATE_SCRAPED"

	DefaultStream = "stream:mortgage_rates"
)

// RedisClient interface for Redis operations (for testing)
type RedisClient interface {
	XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd
	Close() error
}

type RateScrapedPayload struct {
	EventID      string    `json:"event_id"`
	EventType    string    `json:"event_type"`
	Timestamp    time.Time `json:"timestamp"`
	SourceID     string    `json:"source_id"`
	InterestRate float64   `json:"interest_rate"`
	APR          float64   `json:"apr"`
	Points       string    `json:"points,omitempty"`
	AsOf         string    `json:"as_of"`
	Source       string    `json:"source"`
}

// Publisher announces stored rates on a Redis stream.
type Publisher struct {
	redis  RedisClient
	stream string
	logger *slog.Logger
}

func NewPublisher(client RedisClient, stream string, logger *slog.Logger) *Publisher {
	if stream == "" {
		stream = DefaultStream
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		redis:  client,
		stream: stream,
		logger: logger.With("component", "event_publisher"),
	}
}

// NewRedisPublisher connects to addr and returns a publisher on the given stream.
func NewRedisPublisher(ctx context.Context, addr, password string, db int, stream string, logger *slog.Logger) (*Publisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewPublisher(client, stream, logger), nil
}

func (p *Publisher) PublishRateScraped(ctx context.Context, result models.RateResult) error {
	payload := RateScrapedPayload{
		EventID:      uuid.New().String(),
		EventType:    string(EventTypeRateScraped),
		Timestamp:    time.Now().UTC(),
		SourceID:     result.SourceID,
		InterestRate: result.InterestRate,
		APR:          result.APR,
		Points:       result.Points,
		AsOf:         result.Timestamp,
		Source:       "mortgage-rate-scraper",
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]interface{}{
			"data":      string(data),
			"type":      payload.EventType,
			"event_id":  payload.EventID,
			"source_id": payload.SourceID,
			"timestamp": fmt.Sprintf("%d", payload.Timestamp.UnixNano()),
		},
	}

	if _, err := p.redis.XAdd(ctx, args).Result(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}

	p.logger.Info("event published",
		"type", payload.EventType,
		"event_id", payload.EventID,
		"source", payload.SourceID,
		"stream", p.stream)
	return nil
}

// Notify publishes without surfacing failures; a lost event never fails a scrape.
func (p *Publisher) Notify(ctx context.Context, result models.RateResult) {
	if err := p.PublishRateScraped(ctx, result); err != nil {
		p.logger.Warn("failed to publish rate event", "source", result.SourceID, "error", err)
	}
}

func (p *Publisher) Close() error {
	return p.redis.Close()
}
