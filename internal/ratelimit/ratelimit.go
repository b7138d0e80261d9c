// Package ratelimit implements the per-user+route fixed-window limiter
// interactive endpoints use (spec.md §3, §5). The batch runner never
// goes through this package.
package ratelimit

import (
	"fmt"
	"time"

	"github.com/pricelens/core/internal/store"
)

// Limiter enforces a fixed request count per window for a given key.
type Limiter struct {
	repo   *store.RateLimitRepository
	window time.Duration
	limit  int
}

// New constructs a Limiter with the configured window and per-window
// request limit.
func New(repo *store.RateLimitRepository, window time.Duration, limit int) *Limiter {
	return &Limiter{repo: repo, window: window, limit: limit}
}

// Key builds the fixed-window counter key for a user+route pair.
func Key(userID, route string) string {
	return fmt.Sprintf("%s:%s", userID, route)
}

// Allow increments the counter for key and reports whether the request
// is within budget. When it isn't, retryAfter is the remaining window
// time the caller should surface as Retry-After.
func (l *Limiter) Allow(key string) (allowed bool, retryAfter time.Duration, err error) {
	count, expiresAt, err := l.repo.Increment(key, l.window)
	if err != nil {
		return false, 0, err
	}
	if count > l.limit {
		remaining := time.Until(expiresAt)
		if remaining < 0 {
			remaining = 0
		}
		return false, remaining, nil
	}
	return true, 0, nil
}
