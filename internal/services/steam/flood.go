package steam

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Clock abstracts time so flood protection can be tested without sleeping.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RateLimiter enforces a minimum interval between consecutive outbound calls.
// Concurrent callers each reserve the next free slot.
type RateLimiter struct {
	limiter *rate.Limiter
	clock   Clock
}

// NewRateLimiter allows one call per interval. A non-positive interval never waits.
func NewRateLimiter(interval time.Duration, clock Clock) *RateLimiter {
	if clock == nil {
		clock = realClock{}
	}
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &RateLimiter{limiter: rate.NewLimiter(limit, 1), clock: clock}
}

// Wait blocks until the caller's slot comes up. A cancelled ctx gives the
// slot back.
func (r *RateLimiter) Wait(ctx context.Context) error {
	now := r.clock.Now()
	reservation := r.limiter.ReserveN(now, 1)
	delay := reservation.DelayFrom(now)
	if delay == 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		reservation.CancelAt(r.clock.Now())
		return ctx.Err()
	case <-r.clock.After(delay):
		return nil
	}
}
