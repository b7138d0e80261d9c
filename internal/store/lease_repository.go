package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// LeaseRepository implements the per-company claim/release cycle (spec.md
// §4.2).
type LeaseRepository struct {
	db *gorm.DB
}

// NewLeaseRepository constructs a LeaseRepository against the given handle.
func NewLeaseRepository(db *DB) *LeaseRepository {
	return &LeaseRepository{db: db.Gorm()}
}

// ClaimBatch claims up to limit due competitors, one row per round-trip.
// Each claim is a single atomic UPDATE ... RETURNING guarded by
// FOR UPDATE SKIP LOCKED, so concurrent invocations never claim the same
// company twice. Ordering is oldest-due-first, ties broken by
// least-recently-touched, matching spec.md §4.2.
func (r *LeaseRepository) ClaimBatch(limit int, leaseTTL time.Duration, now time.Time) ([]models.Company, error) {
	claimed := make([]models.Company, 0, limit)
	for i := 0; i < limit; i++ {
		company, ok, err := r.claimOne(leaseTTL, now)
		if err != nil {
			return claimed, err
		}
		if !ok {
			break
		}
		claimed = append(claimed, company)
	}
	return claimed, nil
}

func (r *LeaseRepository) claimOne(leaseTTL time.Duration, now time.Time) (models.Company, bool, error) {
	var company models.Company
	leaseUntil := now.Add(leaseTTL)

	tx := r.db.Raw(`
		UPDATE companies
		SET crawl_lease_until = ?
		WHERE company_id = (
			SELECT company_id FROM companies
			WHERE type = ?
			  AND (next_crawl_at IS NULL OR next_crawl_at <= ?)
			  AND (crawl_lease_until IS NULL OR crawl_lease_until <= ?)
			ORDER BY next_crawl_at ASC NULLS FIRST, updated_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING *
	`, leaseUntil, models.CompanyCompetitor, now, now).Scan(&company)
	if tx.Error != nil {
		return models.Company{}, false, tx.Error
	}
	if tx.RowsAffected == 0 {
		return models.Company{}, false, nil
	}
	return company, true, nil
}

// Release clears the lease and schedules the next crawl, per the
// per-item finalizer in spec.md §4.8.
func (r *LeaseRepository) Release(companyID string, nextCrawlAt time.Time) error {
	return r.db.Exec(`
		UPDATE companies
		SET crawl_lease_until = NULL, next_crawl_at = ?
		WHERE company_id = ?
	`, nextCrawlAt, companyID).Error
}
