package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// SnapshotRepository provides data access for Snapshot records.
type SnapshotRepository struct {
	db *gorm.DB
}

// NewSnapshotRepository constructs a SnapshotRepository against the given handle.
func NewSnapshotRepository(db *DB) *SnapshotRepository {
	return &SnapshotRepository{db: db.Gorm()}
}

// Create inserts a new snapshot.
func (r *SnapshotRepository) Create(s *models.Snapshot) error {
	if err := r.db.Create(s).Error; err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	return nil
}

// LatestForCompany returns the immediately-previous snapshot for a
// company, used by the diff engine (spec.md §5: "compares the
// immediately-previous snapshot").
func (r *SnapshotRepository) LatestForCompany(companyID string) (*models.Snapshot, error) {
	var s models.Snapshot
	err := r.db.Where("company_id = ?", companyID).Order("captured_at desc").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest snapshot: %w", err)
	}
	return &s, nil
}
