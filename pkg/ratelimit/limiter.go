package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces outgoing requests
type Limiter interface {
	// Allow reports whether a request may proceed right now, consuming a token if so
	Allow() bool
	// Wait blocks until a request may proceed or ctx is done
	Wait(ctx context.Context) error
	// Reset refills the limiter
	Reset()
}

// TokenBucket is a token bucket backed by golang.org/x/time/rate
type TokenBucket struct {
	mu      sync.Mutex
	every   time.Duration
	burst   int
	limiter *rate.Limiter
}

// NewTokenBucket allows burst requests at once and one more every interval
func NewTokenBucket(burst int, every time.Duration) *TokenBucket {
	if burst <= 0 {
		burst = 1
	}
	return &TokenBucket{
		every:   every,
		burst:   burst,
		limiter: rate.NewLimiter(rate.Every(every), burst),
	}
}

// PerMinute builds a TokenBucket from a requests-per-minute budget
func PerMinute(requests, burst int) *TokenBucket {
	if requests <= 0 {
		return NewTokenBucket(burst, 0)
	}
	return NewTokenBucket(burst, time.Minute/time.Duration(requests))
}

func (tb *TokenBucket) current() *rate.Limiter {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.limiter
}

// Allow checks if a request can proceed
func (tb *TokenBucket) Allow() bool {
	return tb.current().Allow()
}

// Wait blocks until a token is available
func (tb *TokenBucket) Wait(ctx context.Context) error {
	return tb.current().Wait(ctx)
}

// Reset restores the bucket to full capacity
func (tb *TokenBucket) Reset() {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.limiter = rate.NewLimiter(rate.Every(tb.every), tb.burst)
}

// Unlimited never blocks
type Unlimited struct{}

func (Unlimited) Allow() bool { return true }

func (Unlimited) Wait(ctx context.Context) error { return ctx.Err() }

func (Unlimited) Reset() {}
