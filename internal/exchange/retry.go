package exchange

import (
	"context"
	"time"
)

// RetryConfig bounds retries of idempotent reads
type RetryConfig struct {
	MaxAttempts int
	Delay       time.Duration
}

// DefaultReadRetry retries a read three times back to back
var DefaultReadRetry = RetryConfig{MaxAttempts: 3}

// RetryRead runs fn until it succeeds or the attempt budget is spent.
// Only use it for reads: order placement and cancellation must never be retried.
func RetryRead[T any](ctx context.Context, cfg RetryConfig, fn func(context.Context) (T, error)) (T, error) {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var zero T
	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, err
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if cfg.Delay > 0 && attempt < attempts-1 {
			select {
			case <-ctx.Done():
				return zero, ctx.Err()
			case <-time.After(cfg.Delay):
			}
		}
	}
	return zero, lastErr
}
