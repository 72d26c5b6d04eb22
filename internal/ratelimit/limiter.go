package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	initialBackoff = 100 * time.Millisecond
	maxBackoff     = 2 * time.Minute
)

// Limiter throttles calls to one upstream API. It pairs a token bucket
// with an exponential backoff that grows on 429 responses and resets on
// the next success.
type Limiter struct {
	limiter *rate.Limiter
	name    string

	mu      sync.Mutex
	backoff time.Duration
}

// NewLimiter creates a limiter allowing perMinute requests, with a small
// burst.
func NewLimiter(name string, perMinute int) *Limiter {
	burst := perMinute / 10
	if burst < 1 {
		burst = 1
	}
	if burst > 5 {
		burst = 5
	}

	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), burst),
		name:    name,
		backoff: initialBackoff,
	}
}

// Name returns the limiter name.
func (l *Limiter) Name() string { return l.name }

// Wait blocks until a token is available or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// SignalRateLimited doubles the backoff. Call on a 429 response.
func (l *Limiter) SignalRateLimited() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff *= 2
	if l.backoff > maxBackoff {
		l.backoff = maxBackoff
	}
}

// ResetBackoff restores the initial backoff. Call after a success.
func (l *Limiter) ResetBackoff() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.backoff = initialBackoff
}

// Backoff returns the current backoff duration.
func (l *Limiter) Backoff() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.backoff
}

// Sleep waits out the current backoff, honoring context cancellation.
func (l *Limiter) Sleep(ctx context.Context) error {
	t := time.NewTimer(l.Backoff())
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
