package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// CompanyRepository provides data access for Company records.
type CompanyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository constructs a CompanyRepository against the given handle.
func NewCompanyRepository(db *DB) *CompanyRepository {
	return &CompanyRepository{db: db.Gorm()}
}

// Create inserts a new company.
func (r *CompanyRepository) Create(c *models.Company) error {
	if err := r.db.Create(c).Error; err != nil {
		return fmt.Errorf("create company: %w", err)
	}
	return nil
}

// GetByID retrieves a company by id.
func (r *CompanyRepository) GetByID(companyID string) (*models.Company, error) {
	var c models.Company
	err := r.db.Where("company_id = ?", companyID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get company: %w", err)
	}
	return &c, nil
}

// FindByUserAndDomain looks up an existing company for the duplicate
// (type, domain) check in spec.md §7.
func (r *CompanyRepository) FindByUserAndDomain(userID string, companyType models.CompanyType, domain string) (*models.Company, error) {
	var c models.Company
	err := r.db.Where("user_id = ? AND type = ? AND domain = ?", userID, companyType, domain).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find company by domain: %w", err)
	}
	return &c, nil
}

// FindSelfByUser looks up a user's existing type=self company, used to
// enforce spec.md §3's "at most one self company per user" invariant
// and the distinct §7 "duplicate self company" conflict case.
func (r *CompanyRepository) FindSelfByUser(userID string) (*models.Company, error) {
	var c models.Company
	err := r.db.Where("user_id = ? AND type = ?", userID, models.CompanySelf).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find self company: %w", err)
	}
	return &c, nil
}

// CountCompetitors returns the number of competitor companies a user owns,
// used by the entitlements resolver's competitor-cap check.
func (r *CompanyRepository) CountCompetitors(userID string) (int64, error) {
	var count int64
	err := r.db.Model(&models.Company{}).
		Where("user_id = ? AND type = ?", userID, models.CompanyCompetitor).
		Count(&count).Error
	return count, err
}

// ListByUser returns every company a user owns, used by dashboard
// projections.
func (r *CompanyRepository) ListByUser(userID string) ([]models.Company, error) {
	var companies []models.Company
	err := r.db.Where("user_id = ?", userID).Order("created_at asc").Find(&companies).Error
	return companies, err
}

// Update saves the full row, used after crawl finalization and
// interactive mutations.
func (r *CompanyRepository) Update(c *models.Company) error {
	if err := r.db.Save(c).Error; err != nil {
		return fmt.Errorf("update company: %w", err)
	}
	return nil
}

// UpdateCrawlResult records a crawl outcome on a company in a single
// statement, the counterpart to LeaseRepository.Release in the per-item
// finalizer (spec.md §4.8).
func (r *CompanyRepository) UpdateCrawlResult(c *models.Company) error {
	return r.db.Model(&models.Company{}).Where("company_id = ?", c.CompanyID).Updates(map[string]interface{}{
		"last_crawl_at":       c.LastCrawlAt,
		"last_crawl_status":   c.LastCrawlStatus,
		"last_crawl_error":    c.LastCrawlError,
		"latest_content_hash": c.LatestContentHash,
		"latest_confidence":   c.LatestConfidence,
	}).Error
}

// MarkCrawlNow implements the user-initiated "crawl now" rule from
// spec.md §5: nextCrawlAt is always set to now, and crawlLeaseUntil is
// only cleared if the existing lease is already stale. The atomic
// WHERE-guarded UPDATE reports zero rows affected when an active lease
// blocked the clear, so the caller can distinguish "cleared" from
// "conflicting" without a separate read-then-write race.
func (r *CompanyRepository) MarkCrawlNow(companyID string, now time.Time) (leaseCleared bool, err error) {
	tx := r.db.Exec(`
		UPDATE companies
		SET next_crawl_at = ?, crawl_lease_until = NULL
		WHERE company_id = ? AND (crawl_lease_until IS NULL OR crawl_lease_until <= ?)
	`, now, companyID, now)
	if tx.Error != nil {
		return false, tx.Error
	}
	if tx.RowsAffected > 0 {
		return true, nil
	}
	// Lease is still active: only advance nextCrawlAt, leave the lease untouched.
	if err := r.db.Exec(`UPDATE companies SET next_crawl_at = ? WHERE company_id = ?`, now, companyID).Error; err != nil {
		return false, err
	}
	return false, nil
}
