// Package shield guards calls to external dependencies: a retry policy
// with capped exponential backoff, a token-bucket rate limiter, and a
// circuit breaker. One shield instance protects one dependency (the OCR
// backend, outbound HTTP).
package shield

import (
	"context"
	"fmt"
	"time"
)

// Policy is an explicit retry policy applied uniformly by Do.
type Policy struct {
	// MaxAttempts includes the first try. Default: 3.
	MaxAttempts int
	// Backoff returns the wait before attempt n (n starts at 1 for the
	// first retry). Default: exponential 500ms·2ⁿ⁻¹ capped at 10s.
	Backoff func(attempt int) time.Duration
	// IsRetryable decides whether an error is worth another attempt.
	// Default: everything is retryable.
	IsRetryable func(error) bool
}

func (p *Policy) defaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 3
	}
	if p.Backoff == nil {
		p.Backoff = ExpBackoff(500*time.Millisecond, 10*time.Second)
	}
	if p.IsRetryable == nil {
		p.IsRetryable = func(error) bool { return true }
	}
}

// ExpBackoff returns a backoff function that doubles from base, capped.
func ExpBackoff(base, cap time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= cap {
				return cap
			}
		}
		if d > cap {
			return cap
		}
		return d
	}
}

// Do runs fn under the policy. The last error is returned once attempts
// are exhausted or fn fails with a non-retryable error.
func (p Policy) Do(ctx context.Context, fn func(context.Context) error) error {
	p.defaults()

	var err error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !p.IsRetryable(err) || attempt == p.MaxAttempts {
			return err
		}
		if werr := sleepCtx(ctx, p.Backoff(attempt)); werr != nil {
			return fmt.Errorf("shield: cancelled during backoff: %w", werr)
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
