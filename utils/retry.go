package utils

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig holds the parameters for the retry strategy. MaxRetries counts
// retries after the first attempt, so MaxRetries=3 allows four calls total.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	Logger     *Logger
}

// Do executes fn, retrying up to MaxRetries times with linear back-off: the
// n-th retry waits n*BaseDelay (so MaxRetries=3 with a 3s base waits 3s, 6s,
// then 9s). The context cancels both the waits and further attempts.
func (r *RetryConfig) Do(ctx context.Context, operationName string, fn func(ctx context.Context) error) error {
	var lastErr error
	attempts := r.MaxRetries + 1

	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt < attempts {
			delay := time.Duration(attempt) * r.BaseDelay
			r.Logger.Warnf("[retry] %s failed (attempt %d/%d): %v, retrying in %v",
				operationName, attempt, attempts, lastErr, delay)

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return fmt.Errorf("%s aborted during backoff: %w", operationName, ctx.Err())
			}
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, attempts, lastErr)
}
