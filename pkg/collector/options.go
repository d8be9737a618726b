package collector

import (
	"context"
	"time"

	"igfollowers/pkg/checkpoint"
	"igfollowers/pkg/config"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/metrics"
	"igfollowers/pkg/models"
	"igfollowers/pkg/retry"
)

// Fetcher issues exactly one followers request. *instagram.Client implements it.
type Fetcher interface {
	Fetch(ctx context.Context, userID, cursor string) models.PageResult
}

// FetcherFunc adapts a function to Fetcher
type FetcherFunc func(ctx context.Context, userID, cursor string) models.PageResult

func (f FetcherFunc) Fetch(ctx context.Context, userID, cursor string) models.PageResult {
	return f(ctx, userID, cursor)
}

// Classifier turns an intercepted response into a PageResult
type Classifier func(status int, body []byte, now time.Time) models.PageResult

// Sleeper blocks for d or until ctx ends
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// SleeperFunc adapts a function to Sleeper
type SleeperFunc func(ctx context.Context, d time.Duration) error

func (f SleeperFunc) Sleep(ctx context.Context, d time.Duration) error {
	return f(ctx, d)
}

// Options are the per-run inputs
type Options struct {
	UserID string
	// MaxRecords stops the run once this many unique records are held. 0 means no limit.
	MaxRecords int
	// IdleCeiling is the run of pages or events adding nothing new that ends the run.
	// 0 disables it in active mode; passive mode falls back to DefaultIdleCeiling.
	IdleCeiling int
	// Timeout bounds the whole run. 0 means none.
	Timeout time.Duration
	Policy  retry.Policy
}

// DefaultIdleCeiling is used by passive runs that set no IdleCeiling
const DefaultIdleCeiling = 5

// OptionsFromConfig maps the collection section of the config onto Options
func OptionsFromConfig(cfg *config.CollectionConfig) Options {
	return Options{
		UserID:      cfg.UserID,
		MaxRecords:  cfg.MaxFollowers,
		IdleCeiling: cfg.IdleCeiling,
		Timeout:     cfg.Timeout,
		Policy: retry.Policy{
			BaseDelay:        cfg.Delay,
			Jitter:           cfg.Jitter,
			RateLimitBase:    cfg.RateLimitBase,
			RateLimitStep:    cfg.RateLimitStep,
			RateLimitMax:     cfg.RateLimitMax,
			RateLimitCeiling: cfg.RateLimitCeiling,
			TransientMin:     cfg.TransientMin,
			TransientMax:     cfg.TransientMax,
			ErrorCeiling:     cfg.ErrorCeiling,
		},
	}
}

// Option customizes an Engine
type Option func(*Engine)

// WithLogger sets the logger
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver adds observers
func WithObserver(obs ...Observer) Option {
	return func(e *Engine) {
		for _, o := range obs {
			if o != nil {
				e.observers = append(e.observers, o)
			}
		}
	}
}

// WithCheckpoint enables resume for active runs
func WithCheckpoint(store checkpoint.Store) Option {
	return func(e *Engine) { e.checkpoints = store }
}

// WithMetrics sets the metrics recorder
func WithMetrics(rec metrics.Recorder) Option {
	return func(e *Engine) {
		if rec != nil {
			e.metrics = rec
		}
	}
}

// WithSleeper replaces the timer used for inter-page and backoff waits
func WithSleeper(s Sleeper) Option {
	return func(e *Engine) {
		if s != nil {
			e.sleeper = s
		}
	}
}

// WithRand pins the randomness used for jitter
func WithRand(rnd retry.RandFunc) Option {
	return func(e *Engine) { e.rnd = rnd }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithClassifier replaces the classifier used for passive events
func WithClassifier(c Classifier) Option {
	return func(e *Engine) {
		if c != nil {
			e.classify = c
		}
	}
}
