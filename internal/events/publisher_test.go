package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/maltedev/mortgage-rate-scraper/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockRedisClient is a mock for Redis client
type MockRedisClient struct {
	mock.Mock
}

func (m *MockRedisClient) XAdd(ctx context.Context, args *redis.XAddArgs) *redis.StringCmd {
	mockArgs := m.Called(ctx, args)
	cmd := redis.NewStringCmd(ctx)
	if mockArgs.Get(0) != nil {
		cmd.SetErr(mockArgs.Error(0))
	} else {
		cmd.SetVal("1234567890-0")
	}
	return cmd
}

func (m *MockRedisClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func TestPublisher_PublishRateScraped(t *testing.T) {
	ctx := context.Background()

	t.Run("publishes to the configured stream", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		p := NewPublisher(mockRedis, "", nil)

		mockRedis.On("XAdd", ctx, mock.MatchedBy(func(args *redis.XAddArgs) bool {
			if args.Stream != DefaultStream {
				return false
			}
			values := args.Values.(map[string]interface{})
			if values["type"] != string(EventTypeRateScraped) || values["source_id"] != "chase" {
				return false
			}
			var payload RateScrapedPayload
			if err := json.Unmarshal([]byte(values["data"].(string)), &payload); err != nil {
				return false
			}
			return payload.InterestRate == 6.5 && payload.APR == 6.7 && payload.EventID != ""
		})).Return(nil)

		err := p.PublishRateScraped(ctx, models.NewRateResult("chase", 6.5, 6.7, "", "2026-10-18T00:00:00Z"))
		require.NoError(t, err)
		mockRedis.AssertExpectations(t)
	})

	t.Run("returns redis errors", func(t *testing.T) {
		mockRedis := new(MockRedisClient)
		p := NewPublisher(mockRedis, "stream:test", nil)

		mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("redis down"))

		err := p.PublishRateScraped(ctx, models.NewRateResult("chase", 6.5, 6.7, "", ""))
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "redis down")
	})
}

func TestPublisher_NotifySwallowsErrors(t *testing.T) {
	ctx := context.Background()
	mockRedis := new(MockRedisClient)
	p := NewPublisher(mockRedis, "", nil)

	mockRedis.On("XAdd", ctx, mock.Anything).Return(errors.New("redis down"))

	assert.NotPanics(t, func() {
		p.Notify(ctx, models.NewRateResult("chase", 6.5, 6.7, "", ""))
	})
	mockRedis.AssertNumberOfCalls(t, "XAdd", 1)
}

func TestPublisher_Close(t *testing.T) {
	mockRedis := new(MockRedisClient)
	mockRedis.On("Close").Return(nil)

	require.NoError(t, NewPublisher(mockRedis, "", nil).Close())
	mockRedis.AssertExpectations(t)
}
