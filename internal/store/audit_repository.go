package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// AuditRepository records CompetitorAuditEvent rows (SPEC_FULL.md §3).
type AuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository constructs an AuditRepository against the given handle.
func NewAuditRepository(db *DB) *AuditRepository {
	return &AuditRepository{db: db.Gorm()}
}

// Record inserts a new audit event. Failures here are logged by the
// caller and never block the mutation or crawl outcome they describe.
func (r *AuditRepository) Record(e *models.CompetitorAuditEvent) error {
	if err := r.db.Create(e).Error; err != nil {
		return fmt.Errorf("record audit event: %w", err)
	}
	return nil
}

// ListByUser returns a user's audit trail, newest first, used by support
// tooling and the dashboard overview projection.
func (r *AuditRepository) ListByUser(userID string, limit int) ([]models.CompetitorAuditEvent, error) {
	var events []models.CompetitorAuditEvent
	query := r.db.Where("user_id = ?", userID).Order("occurred_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&events).Error
	return events, err
}
