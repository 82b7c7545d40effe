// Package ratelimit throttles outbound notification sends so a run with many
// matched credentials does not hammer the SMTP relay or webhook endpoint.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter. A zero or negative rate disables it.
type Limiter struct {
	limiter *rate.Limiter
	rps     float64
}

// New creates a limiter allowing rps requests per second.
// rps <= 0 returns a disabled limiter whose Wait returns immediately.
func New(rps float64) *Limiter {
	if rps <= 0 {
		return &Limiter{}
	}
	return &Limiter{
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		rps:     rps,
	}
}

// Wait blocks until the next send is allowed or the context is cancelled.
func (l *Limiter) Wait(ctx context.Context) error {
	if l.limiter == nil {
		return nil
	}
	return l.limiter.Wait(ctx)
}

// Enabled reports whether rate limiting is active.
func (l *Limiter) Enabled() bool {
	return l.limiter != nil
}

// RPS returns the configured requests-per-second limit (0 when disabled).
func (l *Limiter) RPS() float64 {
	return l.rps
}
