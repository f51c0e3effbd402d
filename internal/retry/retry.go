// Package retry implements a bounded retry policy with pluggable
// backoff and retryability, independent of what is being retried.
package retry

import (
	"context"
	"time"
)

// Policy describes how an operation is retried. The zero value performs
// a single attempt with no delay.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, including the
	// first one. Values below 1 behave as 1.
	MaxAttempts int
	// Backoff returns the delay before retrying after failed attempt n
	// (1-based). Nil means no delay.
	Backoff func(n int) time.Duration
	// Retryable reports whether an error is worth another attempt.
	// Nil means every error is retryable.
	Retryable func(err error) bool
	// Sleep waits out a backoff delay. Nil uses a context-aware sleep;
	// tests inject their own to avoid real delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Do runs op until it succeeds, exhausts MaxAttempts, hits a
// non-retryable error, or the context ends. The last error observed is
// returned on failure.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepContext
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		if attempt > 1 && p.Backoff != nil {
			if err := sleep(ctx, p.Backoff(attempt-1)); err != nil {
				return err
			}
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// ExponentialBackoff returns base * 2^(n-1): base, 2*base, 4*base, ...
func ExponentialBackoff(base time.Duration) func(n int) time.Duration {
	return func(n int) time.Duration {
		return base * time.Duration(1<<(n-1))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
