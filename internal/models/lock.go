package models

import "time"

// InvocationLock is the single-writer guard the batch runner and digest
// job use to serialize invocations (spec.md §3, §4.1). Unique on Key.
type InvocationLock struct {
	Key            string     `gorm:"primaryKey;size:100" json:"key"`
	OwnerID        string     `gorm:"size:36" json:"ownerId"`
	LockUntil      time.Time  `json:"lockUntil"`
	LockedAt       time.Time  `json:"lockedAt"`
	LastReleasedAt *time.Time `json:"lastReleasedAt,omitempty"`
}

func (InvocationLock) TableName() string { return "invocation_locks" }

// IsFree reports whether the lock is free at the given instant, per
// spec.md §3: "A lock is considered free iff lockUntil ≤ now".
func (l InvocationLock) IsFree(now time.Time) bool {
	return !l.LockUntil.After(now)
}
