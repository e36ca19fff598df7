// Package ratelimit implements sliding-window rate limiting for the public
// certificate verification endpoint. Verification requires no authentication,
// so the limiter is the only guard against code-space scanning.
package ratelimit

import (
	"context"
	"time"
)

// Result reports the outcome of a rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// Store tracks request counts per key over a sliding window.
type Store interface {
	// Allow checks whether one more request under key fits inside the window
	// and records it when it does.
	Allow(ctx context.Context, key string, limit int, window time.Duration) (*Result, error)
	// Reset clears the counter for a key.
	Reset(ctx context.Context, key string) error
}

// Limiter applies a fixed policy to a Store.
type Limiter struct {
	store  Store
	limit  int
	window time.Duration
}

func NewLimiter(store Store, limit int, window time.Duration) *Limiter {
	return &Limiter{store: store, limit: limit, window: window}
}

// Allow checks the key against the configured policy. A store failure fails
// open: the verification endpoint should degrade to unthrottled rather than
// unavailable.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	res, err := l.store.Allow(ctx, key, l.limit, l.window)
	if err != nil {
		return &Result{Allowed: true, Remaining: l.limit, Limit: l.limit}, err
	}
	return res, nil
}
