package store

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// DiffRepository provides data access for Diff records.
type DiffRepository struct {
	db *gorm.DB
}

// NewDiffRepository constructs a DiffRepository against the given handle.
func NewDiffRepository(db *DB) *DiffRepository {
	return &DiffRepository{db: db.Gorm()}
}

// Create inserts a new diff.
func (r *DiffRepository) Create(d *models.Diff) error {
	if err := r.db.Create(d).Error; err != nil {
		return fmt.Errorf("create diff: %w", err)
	}
	return nil
}

// ListVerifiedSince returns verified diffs across a user's companies
// detected at or after since, capped to limit, used by the digest job
// (spec.md §4.12).
func (r *DiffRepository) ListVerifiedSince(userID string, since time.Time, limit int) ([]models.Diff, error) {
	var diffs []models.Diff
	err := r.db.Where("user_id = ? AND verification_state = ? AND detected_at >= ?", userID, models.VerificationVerified, since).
		Order("detected_at desc").
		Limit(limit).
		Find(&diffs).Error
	return diffs, err
}

// ListByCompany returns diffs for a company, newest first, used by the
// dashboard feed projection.
func (r *DiffRepository) ListByCompany(companyID string, limit int) ([]models.Diff, error) {
	var diffs []models.Diff
	query := r.db.Where("company_id = ?", companyID).Order("detected_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&diffs).Error
	return diffs, err
}

// ListByUser returns diffs across every company a user owns, newest
// first, used by the dashboard feed projection.
func (r *DiffRepository) ListByUser(userID string, limit int) ([]models.Diff, error) {
	var diffs []models.Diff
	query := r.db.Where("user_id = ?", userID).Order("detected_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&diffs).Error
	return diffs, err
}
