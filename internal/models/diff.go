package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Severity is the closed set of diff severities (spec.md §3, §4.6).
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// VerificationState mirrors the source snapshot's verified flag at the time
// of the diff.
type VerificationState string

const (
	VerificationVerified   VerificationState = "verified"
	VerificationUnverified VerificationState = "unverified"
)

// BucketChange is the set of per-amount changes within one
// (currency, period) bucket.
type BucketChange struct {
	Currency string            `json:"currency"`
	Period   Period            `json:"period"`
	Added    []decimal.Decimal `json:"added"`
	Removed  []decimal.Decimal `json:"removed"`
	Updated  []AmountUpdate    `json:"updated"`
}

// AmountUpdate records one paired amount change within a bucket.
type AmountUpdate struct {
	Previous   decimal.Decimal `json:"previous"`
	Current    decimal.Decimal `json:"current"`
	AbsDelta   decimal.Decimal `json:"absDelta"`
	PctDelta   decimal.Decimal `json:"pctDelta"`
}

// NormalizedDiff is the bucketed delta plus bookkeeping spec.md §4.6/§4.7
// describes.
type NormalizedDiff struct {
	Buckets      []BucketChange `json:"buckets"`
	AddedHints   []string       `json:"addedHints"`
	RemovedHints []string       `json:"removedHints"`

	PreviousPriceCount int `json:"previousPriceCount"`
	CurrentPriceCount  int `json:"currentPriceCount"`
	PreviousPlanCount  int `json:"previousPlanCount"`
	CurrentPlanCount   int `json:"currentPlanCount"`

	TotalAdded   int `json:"totalAdded"`
	TotalRemoved int `json:"totalRemoved"`
	TotalUpdated int `json:"totalUpdated"`

	ChangedAt time.Time `json:"changedAt"`
}

// IsEmpty reports whether the delta carries no meaningful change, per
// spec.md §4.6 step 4: "If every bucket is empty and no hint change".
func (d NormalizedDiff) IsEmpty() bool {
	return d.TotalAdded == 0 && d.TotalRemoved == 0 && d.TotalUpdated == 0 &&
		len(d.AddedHints) == 0 && len(d.RemovedHints) == 0
}

// Diff is a snapshot-to-snapshot delta (spec.md §3).
type Diff struct {
	DiffID              string   `gorm:"primaryKey;size:36" json:"diffId"`
	UserID              string   `gorm:"index;size:36" json:"userId"`
	CompanyID           string   `gorm:"index;size:36" json:"companyId"`
	PreviousSnapshotID  *string  `gorm:"size:36" json:"previousSnapshotId,omitempty"`
	CurrentSnapshotID   string   `gorm:"size:36" json:"currentSnapshotId"`

	NormalizedDiffJSON string `gorm:"type:text" json:"-"`

	Severity           Severity          `gorm:"size:10;index" json:"severity"`
	VerificationState  VerificationState `gorm:"size:20" json:"verificationState"`
	DetectedAt         time.Time         `gorm:"index" json:"detectedAt"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Diff) TableName() string { return "diffs" }

// Normalized unmarshals the stored bucketed delta.
func (d *Diff) Normalized() (NormalizedDiff, error) {
	var nd NormalizedDiff
	if d.NormalizedDiffJSON == "" {
		return nd, nil
	}
	err := json.Unmarshal([]byte(d.NormalizedDiffJSON), &nd)
	return nd, err
}

// SetNormalized marshals and stores the bucketed delta.
func (d *Diff) SetNormalized(nd NormalizedDiff) error {
	data, err := json.Marshal(nd)
	if err != nil {
		return err
	}
	d.NormalizedDiffJSON = string(data)
	return nil
}
