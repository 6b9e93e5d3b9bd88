package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFixedPacer(t *testing.T) {
	p := NewFixedPacer(20 * time.Millisecond)

	start := time.Now()
	assert.NoError(t, p.Pause(context.Background()))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestJitterPacerBounds(t *testing.T) {
	p := NewJitterPacer(10*time.Millisecond, 30*time.Millisecond)

	for i := 0; i < 100; i++ {
		d := p.nextDelay()
		assert.GreaterOrEqual(t, d, 10*time.Millisecond)
		assert.Less(t, d, 30*time.Millisecond)
	}
}

func TestJitterPacerSwappedBounds(t *testing.T) {
	p := NewJitterPacer(50*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, p.nextDelay())
}

func TestPauseCancelled(t *testing.T) {
	p := NewFixedPacer(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, p.Pause(ctx), context.Canceled)
}

func TestNoPause(t *testing.T) {
	assert.NoError(t, NoPause{}.Pause(context.Background()))
}
