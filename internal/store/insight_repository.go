package store

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// InsightRepository provides data access for Insight records.
type InsightRepository struct {
	db *gorm.DB
}

// NewInsightRepository constructs an InsightRepository against the given handle.
func NewInsightRepository(db *DB) *InsightRepository {
	return &InsightRepository{db: db.Gorm()}
}

// Create inserts a new insight.
func (r *InsightRepository) Create(i *models.Insight) error {
	if err := r.db.Create(i).Error; err != nil {
		return fmt.Errorf("create insight: %w", err)
	}
	return nil
}

// ListByUser returns insights across every company a user owns, newest
// first, used by the dashboard feed projection.
func (r *InsightRepository) ListByUser(userID string, limit int) ([]models.Insight, error) {
	var insights []models.Insight
	query := r.db.Where("user_id = ?", userID).Order("generated_at desc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&insights).Error
	return insights, err
}

// SetFeedback records a user's reaction to an insight via
// PATCH /insights/:id/feedback.
func (r *InsightRepository) SetFeedback(insightID string, feedback models.Feedback) error {
	tx := r.db.Model(&models.Insight{}).Where("insight_id = ?", insightID).Update("feedback", feedback)
	if tx.Error != nil {
		return fmt.Errorf("set insight feedback: %w", tx.Error)
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
