// Package cache wraps a best-effort Redis fast path in front of the
// Postgres-backed invocation lock (SPEC_FULL.md §4.1): a `SET key val NX
// PX` existence check that lets a contended acquire short-circuit
// without touching Postgres. Losing Redis never breaks correctness —
// the Postgres row stays the single source of truth; a Hint is only
// ever consulted as an optimization, never as the final word.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricelens/core/internal/logging"
)

// Hint is the optional Redis fast path. A nil *Hint (or one built
// against an empty URL) is valid and makes every call a no-op miss, so
// callers never need a feature flag to skip it.
type Hint struct {
	client *redis.Client
	log    *logging.Logger
}

// New connects to redisURL. An empty URL returns a Hint with no
// backing client; Connect failures are logged and also degrade to a
// no-op Hint rather than failing startup, since Redis here is strictly
// an optimization.
func New(redisURL string, log *logging.Logger) *Hint {
	if redisURL == "" {
		return &Hint{log: log}
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Warn("invalid redis url, disabling lock fast-path")
		return &Hint{log: log}
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable, disabling lock fast-path")
		return &Hint{log: log}
	}
	return &Hint{client: client, log: log}
}

// TryAcquire sets key if absent, reporting whether it was this call
// that claimed it. A false return with a nil error means either the
// key was already held or Redis is unavailable; callers must still
// fall through to the authoritative Postgres acquire in both cases.
func (h *Hint) TryAcquire(ctx context.Context, key string, ttl time.Duration) bool {
	if h == nil || h.client == nil {
		return false
	}
	ok, err := h.client.SetNX(ctx, "lock_hint:"+key, "1", ttl).Result()
	if err != nil {
		return false
	}
	return ok
}

// Release clears the fast-path hint so the next acquirer isn't forced
// to wait out its TTL after the authoritative Postgres lock has
// already been released.
func (h *Hint) Release(ctx context.Context, key string) {
	if h == nil || h.client == nil {
		return
	}
	h.client.Del(ctx, "lock_hint:"+key)
}

// Enabled reports whether this Hint has a live Redis connection.
func (h *Hint) Enabled() bool {
	return h != nil && h.client != nil
}

// Close releases the underlying connection pool, if any.
func (h *Hint) Close() error {
	if h == nil || h.client == nil {
		return nil
	}
	return h.client.Close()
}
