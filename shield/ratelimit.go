package shield

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter is a token-bucket rate limiter for one external dependency.
type Limiter struct {
	bucket *rate.Limiter
}

// NewLimiter allows rps calls per second with the given burst.
// rps <= 0 disables limiting.
func NewLimiter(rps float64, burst int) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	if burst < 1 {
		burst = 1
	}
	return &Limiter{bucket: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or the context ends.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil || l.bucket == nil {
		return ctx.Err()
	}
	return l.bucket.Wait(ctx)
}

// Allow reports whether a call may proceed immediately.
func (l *Limiter) Allow() bool {
	if l == nil || l.bucket == nil {
		return true
	}
	return l.bucket.Allow()
}

// Guard bundles the three protections for one dependency.
type Guard struct {
	Limiter *Limiter
	Breaker *Breaker
	Retry   Policy
}

// Do runs fn behind the limiter, breaker, and retry policy, in that
// order: each retry attempt waits for a token and asks the breaker.
func (g *Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	return g.Retry.Do(ctx, func(ctx context.Context) error {
		if g.Limiter != nil {
			if err := g.Limiter.Wait(ctx); err != nil {
				return err
			}
		}
		if g.Breaker != nil {
			return g.Breaker.Call(func() error { return fn(ctx) })
		}
		return fn(ctx)
	})
}
