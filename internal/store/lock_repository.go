package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// LockRepository guards the named-job invocation lock (spec.md §4.1).
type LockRepository struct {
	db         *gorm.DB
	newOwnerID func() string
}

// NewLockRepository constructs a LockRepository against the given handle.
func NewLockRepository(db *DB) *LockRepository {
	return &LockRepository{db: db.Gorm(), newOwnerID: uuid.NewString}
}

// AcquireResult is the outcome of an Acquire call.
type AcquireResult struct {
	Acquired         bool
	OwnerID          string
	LockUntil        time.Time
	RetryAfterSeconds int
}

// Acquire attempts the atomic compare-and-set described in spec.md §4.1:
// it sets ownerId/lockUntil/lockedAt on the named lock if it is free
// (lockUntil <= now, or the row doesn't exist yet), and otherwise reports
// the remaining hold time.
func (r *LockRepository) Acquire(key string, ttl time.Duration) (AcquireResult, error) {
	now := time.Now().UTC()
	ownerID := r.newOwnerID()
	lockUntil := now.Add(ttl)

	// INSERT ... ON CONFLICT is the Postgres idiom for a single-row
	// compare-and-set: the UPDATE branch only fires when the existing
	// row's lock has already expired, so a held lock is left untouched.
	var row models.InvocationLock
	tx := r.db.Raw(`
		INSERT INTO invocation_locks (key, owner_id, lock_until, locked_at, last_released_at)
		VALUES (?, ?, ?, ?, NULL)
		ON CONFLICT (key) DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			lock_until = EXCLUDED.lock_until,
			locked_at = EXCLUDED.locked_at
		WHERE invocation_locks.lock_until <= ?
		RETURNING key, owner_id, lock_until, locked_at, last_released_at
	`, key, ownerID, lockUntil, now, now).Scan(&row)
	if tx.Error != nil {
		return AcquireResult{}, tx.Error
	}

	if tx.RowsAffected == 0 || row.OwnerID != ownerID {
		var existing models.InvocationLock
		if err := r.db.Raw(`SELECT key, owner_id, lock_until, locked_at, last_released_at FROM invocation_locks WHERE key = ?`, key).Scan(&existing).Error; err != nil {
			return AcquireResult{}, err
		}
		retryAfter := int(existing.LockUntil.Sub(now).Seconds())
		if retryAfter < 0 {
			retryAfter = 0
		}
		return AcquireResult{
			Acquired:          false,
			LockUntil:         existing.LockUntil,
			RetryAfterSeconds: retryAfter,
		}, nil
	}

	return AcquireResult{
		Acquired:  true,
		OwnerID:   ownerID,
		LockUntil: lockUntil,
	}, nil
}

// Release frees the lock, fenced by ownerId: only the current holder can
// release it, per spec.md §4.1.
func (r *LockRepository) Release(key, ownerID string) error {
	now := time.Now().UTC()
	tx := r.db.Exec(`
		UPDATE invocation_locks
		SET lock_until = ?, last_released_at = ?
		WHERE key = ? AND owner_id = ?
	`, now, now, key, ownerID)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return errors.New("release: lock not held by owner")
	}
	return nil
}
