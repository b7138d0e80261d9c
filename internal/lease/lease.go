// Package lease wraps the per-company claim/release cycle from
// spec.md §4.2 and the backoff table from §4.8.
package lease

import (
	"time"

	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/store"
)

// Claimer claims due competitors and schedules their next crawl.
type Claimer struct {
	repo *store.LeaseRepository
	ttl  time.Duration
}

// New constructs a Claimer with the configured lease TTL (default 6
// minutes per spec.md §4.2).
func New(repo *store.LeaseRepository, ttl time.Duration) *Claimer {
	return &Claimer{repo: repo, ttl: ttl}
}

// ClaimBatch claims up to limit due competitors.
func (c *Claimer) ClaimBatch(limit int, now time.Time) ([]models.Company, error) {
	return c.repo.ClaimBatch(limit, c.ttl, now)
}

// Release clears a company's lease and schedules its next crawl per the
// backoff table in spec.md §4.8.
func (c *Claimer) Release(companyID string, nextCrawlAt time.Time) error {
	return c.repo.Release(companyID, nextCrawlAt)
}

// Backoff durations from spec.md §4.8's tunable table.
type Backoff struct {
	Success time.Duration
	Error   time.Duration
	Blocked time.Duration
	Manual  time.Duration
}

// DelayFor returns the next-crawl delay for a terminal crawl status.
func (b Backoff) DelayFor(status models.CrawlStatus) time.Duration {
	switch status {
	case models.CrawlOK:
		return b.Success
	case models.CrawlError:
		return b.Error
	case models.CrawlBlocked:
		return b.Blocked
	case models.CrawlManualNeeded:
		return b.Manual
	default:
		return b.Success
	}
}
