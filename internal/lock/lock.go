// Package lock wraps the invocation-lock repository with the
// guaranteed-release discipline spec.md §4.1 and §5 require: release
// runs on every exit path, including panics.
package lock

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/core/internal/cache"
	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/store"
)

// CrawlLockKey and DigestLockKey are the two named locks spec.md §4.1
// defines: one for the crawl batch, one for the weekly digest.
const (
	CrawlLockKey  = "cron:crawl"
	DigestLockKey = "cron:digest"
)

// Acquirer guards a named job with an atomic compare-and-set lock, with
// an optional Redis fast path in front of it.
type Acquirer struct {
	repo *store.LockRepository
	hint *cache.Hint
	log  *logging.Logger
}

// New constructs an Acquirer. hint may be nil to run Postgres-only.
func New(repo *store.LockRepository, hint *cache.Hint, log *logging.Logger) *Acquirer {
	return &Acquirer{repo: repo, hint: hint, log: log}
}

// AcquireResult mirrors store.AcquireResult for callers that shouldn't
// import the store package directly.
type AcquireResult = store.AcquireResult

// Acquire attempts to take the named lock for ttl. When the Redis hint
// reports the key already claimed, this short-circuits to a "not
// acquired" result without a Postgres round trip; a hint miss (absent,
// unavailable, or genuinely free) always falls through to the
// authoritative Postgres acquire.
func (a *Acquirer) Acquire(key string, ttl time.Duration) (AcquireResult, error) {
	ctx := context.Background()
	if a.hint.Enabled() && !a.hint.TryAcquire(ctx, key, ttl) {
		return AcquireResult{Acquired: false, RetryAfterSeconds: int(ttl.Seconds())}, nil
	}
	return a.repo.Acquire(key, ttl)
}

// WithLock acquires key, runs fn if acquired, and releases the lock on
// every exit path including a panic inside fn, per spec.md §4.1's
// "Release must be performed on every exit path, including panics."
// skipped reports whether fn ran at all.
func (a *Acquirer) WithLock(key string, ttl time.Duration, fn func() error) (skipped bool, acquireResult AcquireResult, fnErr error) {
	result, err := a.Acquire(key, ttl)
	if err != nil {
		return false, AcquireResult{}, err
	}
	if !result.Acquired {
		return true, result, nil
	}

	defer func() {
		if r := recover(); r != nil {
			a.release(key, result.OwnerID)
			panic(r)
		}
	}()
	defer a.release(key, result.OwnerID)

	fnErr = fn()
	return false, result, fnErr
}

func (a *Acquirer) release(key, ownerID string) {
	if err := a.repo.Release(key, ownerID); err != nil {
		a.log.Warn("lock release failed", zap.Error(err))
	}
	if a.hint.Enabled() {
		a.hint.Release(context.Background(), key)
	}
}
