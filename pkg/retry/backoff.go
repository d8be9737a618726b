package retry

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay before the given attempt (1-based)
	NextDelay(attempt int) time.Duration
}

// RandFunc returns a float in [0, 1). Strategies take one so tests can pin it.
type RandFunc func() float64

func (r RandFunc) get() RandFunc {
	if r == nil {
		return rand.Float64
	}
	return r
}

// jitter spreads d by up to ±factor of itself
func jitter(d time.Duration, factor float64, rnd RandFunc) time.Duration {
	if factor <= 0 || d <= 0 {
		return d
	}
	spread := float64(d) * factor
	delay := float64(d) + (rnd.get()()*2*spread - spread)
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// ExponentialBackoff implements exponential backoff with jitter
type ExponentialBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	JitterFactor float64
	Rand         RandFunc
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay calculates the next delay with exponential backoff and jitter
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if eb.MaxDelay > 0 && delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	return jitter(time.Duration(delay), eb.JitterFactor, eb.Rand)
}

// LinearBackoff grows by a fixed increment per attempt
type LinearBackoff struct {
	BaseDelay    time.Duration
	MaxDelay     time.Duration
	Increment    time.Duration
	JitterFactor float64
	Rand         RandFunc
}

// NextDelay returns BaseDelay + Increment*(attempt-1), capped at MaxDelay
func (lb *LinearBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := lb.BaseDelay + lb.Increment*time.Duration(attempt-1)
	if lb.MaxDelay > 0 && delay > lb.MaxDelay {
		delay = lb.MaxDelay
	}

	return jitter(delay, lb.JitterFactor, lb.Rand)
}

// UniformBackoff draws each delay uniformly from [Min, Max]
type UniformBackoff struct {
	Min  time.Duration
	Max  time.Duration
	Rand RandFunc
}

// NextDelay ignores attempt; every retry waits somewhere in the window
func (ub *UniformBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	if ub.Max <= ub.Min {
		return ub.Min
	}
	return ub.Min + time.Duration(ub.Rand.get()()*float64(ub.Max-ub.Min))
}

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
