package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Pacer inserts a pause between browser actions so consecutive steps do not
// fire faster than a person could click.
type Pacer interface {
	Pause(ctx context.Context) error
}

type StepPacer struct {
	minDelay time.Duration
	maxDelay time.Duration
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewFixedPacer pauses for exactly d after every step.
func NewFixedPacer(d time.Duration) *StepPacer {
	return NewJitterPacer(d, d)
}

// NewJitterPacer pauses for a random duration in [minDelay, maxDelay].
func NewJitterPacer(minDelay, maxDelay time.Duration) *StepPacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &StepPacer{
		minDelay: minDelay,
		maxDelay: maxDelay,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (p *StepPacer) Pause(ctx context.Context) error {
	delay := p.nextDelay()
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (p *StepPacer) nextDelay() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.minDelay == p.maxDelay {
		return p.minDelay
	}

	delta := p.maxDelay - p.minDelay
	return p.minDelay + time.Duration(p.rng.Int63n(int64(delta)))
}

// NoPause is a Pacer that never waits.
type NoPause struct{}

func (NoPause) Pause(ctx context.Context) error {
	return ctx.Err()
}
