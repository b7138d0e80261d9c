package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// UserRepository provides data access for User records. The core only
// reads users written by the external auth/billing collaborator, except
// for the trial lifecycle fields it owns directly.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository constructs a UserRepository against the given handle.
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db.Gorm()}
}

// GetByID retrieves a user by id.
func (r *UserRepository) GetByID(userID string) (*models.User, error) {
	var u models.User
	err := r.db.Where("user_id = ?", userID).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// Update saves the full row, used for trial lifecycle transitions.
func (r *UserRepository) Update(u *models.User) error {
	if err := r.db.Save(u).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// ListDigestCandidates returns every user with a non-empty email, used
// by the weekly digest job before per-user eligibility filtering
// (spec.md §4.12).
func (r *UserRepository) ListDigestCandidates() ([]models.User, error) {
	var users []models.User
	err := r.db.Where("email <> ''").Find(&users).Error
	return users, err
}

// MarkDigestSent records the digest dispatch timestamp.
func (r *UserRepository) MarkDigestSent(userID string, sentAt time.Time) error {
	return r.db.Model(&models.User{}).Where("user_id = ?", userID).Update("last_digest_sent_at", sentAt).Error
}
