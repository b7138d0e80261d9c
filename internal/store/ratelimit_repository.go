package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// RateLimitRepository implements the per-key fixed-window counter
// interactive endpoints use (spec.md §3, §5).
type RateLimitRepository struct {
	db *gorm.DB
}

// NewRateLimitRepository constructs a RateLimitRepository against the given handle.
func NewRateLimitRepository(db *DB) *RateLimitRepository {
	return &RateLimitRepository{db: db.Gorm()}
}

// Increment atomically increments the counter for key within window,
// starting a new window if the previous one has expired. Returns the
// post-increment count and the window's expiry.
func (r *RateLimitRepository) Increment(key string, window time.Duration) (count int, expiresAt time.Time, err error) {
	now := time.Now().UTC()
	newExpiry := now.Add(window)

	tx := r.db.Exec(`
		INSERT INTO rate_limit_counters (key, count, window_started_at, expires_at)
		VALUES (?, 1, ?, ?)
		ON CONFLICT (key) DO UPDATE SET
			count = CASE WHEN rate_limit_counters.expires_at <= ? THEN 1 ELSE rate_limit_counters.count + 1 END,
			window_started_at = CASE WHEN rate_limit_counters.expires_at <= ? THEN ? ELSE rate_limit_counters.window_started_at END,
			expires_at = CASE WHEN rate_limit_counters.expires_at <= ? THEN ? ELSE rate_limit_counters.expires_at END
	`, key, now, newExpiry, now, now, now, now, newExpiry)
	if tx.Error != nil {
		return 0, time.Time{}, tx.Error
	}

	var row models.RateLimitCounter
	if err := r.db.Where("key = ?", key).First(&row).Error; err != nil {
		return 0, time.Time{}, err
	}
	return row.Count, row.ExpiresAt, nil
}
