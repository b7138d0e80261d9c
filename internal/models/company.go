package models

import (
	"encoding/json"
	"sort"
	"time"
)

// CompanyType is the closed set of company roles (spec.md §3).
type CompanyType string

const (
	CompanySelf       CompanyType = "self"
	CompanyCompetitor CompanyType = "competitor"
)

// CrawlStatus is the closed set of last-observed crawl outcomes.
type CrawlStatus string

const (
	CrawlIdle         CrawlStatus = "idle"
	CrawlOK           CrawlStatus = "ok"
	CrawlBlocked      CrawlStatus = "blocked"
	CrawlManualNeeded CrawlStatus = "manual_needed"
	CrawlError        CrawlStatus = "error"
)

// PricingURLCandidate is one discovered or user-selected pricing URL
// candidate (spec.md §3, §4.9, §4.10).
type PricingURLCandidate struct {
	URL            string  `json:"url"`
	Confidence     float64 `json:"confidence"`
	SelectedByUser bool    `json:"selectedByUser"`
}

// SortCandidates orders candidates by confidence desc, url asc per
// spec.md §9 "Collection semantics".
func SortCandidates(c []PricingURLCandidate) {
	sort.SliceStable(c, func(i, j int) bool {
		if c[i].Confidence != c[j].Confidence {
			return c[i].Confidence > c[j].Confidence
		}
		return c[i].URL < c[j].URL
	})
}

// Company is a crawl target (spec.md §3).
type Company struct {
	CompanyID string      `gorm:"primaryKey;size:36" json:"companyId"`
	UserID    string      `gorm:"index;size:36" json:"userId"`
	Type      CompanyType `gorm:"size:20;index" json:"type"`
	Name      string      `gorm:"size:255" json:"name"`
	Domain    string      `gorm:"size:255;index" json:"domain"`

	HomepageURL       *string `gorm:"size:2048" json:"homepageUrl,omitempty"`
	PrimaryPricingURL *string `gorm:"size:2048" json:"primaryPricingUrl,omitempty"`

	// PricingURLCandidatesJSON stores the ordered candidate set as JSON
	// text, following the teacher's "JSON stored as string" convention for
	// value objects that aren't relational children.
	PricingURLCandidatesJSON string `gorm:"type:text" json:"-"`

	NextCrawlAt     *time.Time `json:"nextCrawlAt,omitempty"`
	CrawlLeaseUntil *time.Time `json:"crawlLeaseUntil,omitempty"`

	LastCrawlAt     *time.Time  `json:"lastCrawlAt,omitempty"`
	LastCrawlStatus CrawlStatus `gorm:"size:20" json:"lastCrawlStatus"`
	LastCrawlError  *string     `gorm:"size:400" json:"lastCrawlError,omitempty"`

	LatestContentHash *string  `gorm:"size:64" json:"latestContentHash,omitempty"`
	LatestConfidence  *float64 `json:"latestConfidence,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Company) TableName() string { return "companies" }

// Candidates unmarshals the stored candidate set.
func (c *Company) Candidates() ([]PricingURLCandidate, error) {
	if c.PricingURLCandidatesJSON == "" {
		return nil, nil
	}
	var out []PricingURLCandidate
	if err := json.Unmarshal([]byte(c.PricingURLCandidatesJSON), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetCandidates marshals and stores the candidate set, sorted per
// spec.md §9.
func (c *Company) SetCandidates(candidates []PricingURLCandidate) error {
	SortCandidates(candidates)
	data, err := json.Marshal(candidates)
	if err != nil {
		return err
	}
	c.PricingURLCandidatesJSON = string(data)
	return nil
}

// IsDue reports whether the company is due for a crawl at the given instant,
// per spec.md §4.2's definition.
func (c *Company) IsDue(now time.Time) bool {
	if c.Type != CompanyCompetitor {
		return false
	}
	if c.NextCrawlAt != nil && c.NextCrawlAt.After(now) {
		return false
	}
	if c.CrawlLeaseUntil != nil && c.CrawlLeaseUntil.After(now) {
		return false
	}
	return true
}

// LeaseIsStale reports whether the current lease (if any) has already
// expired, used by the crawl-now/retry-crawl conflict rule (spec.md §5).
func (c *Company) LeaseIsStale(now time.Time) bool {
	return c.CrawlLeaseUntil == nil || !c.CrawlLeaseUntil.After(now)
}
