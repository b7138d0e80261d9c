package models

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// CaptureMethod is the closed sum of ways a snapshot's payload was produced
// (spec.md §3, §9 "Dynamic dispatch / polymorphism"). Only "static" is
// implemented in this core; the others are reserved tags for a future
// pluggable extractor backend.
type CaptureMethod string

const (
	CaptureStatic    CaptureMethod = "static"
	CapturePlaywright CaptureMethod = "playwright"
	CaptureLLM       CaptureMethod = "llm"
	CaptureManual    CaptureMethod = "manual"
)

// Period is the closed set of billing periods a price mention can carry.
type Period string

const (
	PeriodDay     Period = "day"
	PeriodWeek    Period = "week"
	PeriodMonth   Period = "month"
	PeriodYear    Period = "year"
	PeriodOneTime Period = "one_time"
	PeriodUnknown Period = "unknown"
)

// PriceMention is one detected price on a pricing page.
type PriceMention struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Period   Period          `json:"period"`
}

// Key returns the de-duplication/bucket key spec.md §4.5/§4.6 use.
func (p PriceMention) Key() string {
	return p.Currency + "|" + string(p.Period)
}

// SortPriceMentions orders mentions by currency, period, amount ascending
// and de-duplicates by (currency, period, roundedAmount), per spec.md §4.5.
func SortPriceMentions(mentions []PriceMention) []PriceMention {
	rounded := make([]PriceMention, len(mentions))
	for i, m := range mentions {
		rounded[i] = PriceMention{
			Amount:   m.Amount.Round(2),
			Currency: m.Currency,
			Period:   m.Period,
		}
	}
	sort.SliceStable(rounded, func(i, j int) bool {
		if rounded[i].Currency != rounded[j].Currency {
			return rounded[i].Currency < rounded[j].Currency
		}
		if rounded[i].Period != rounded[j].Period {
			return rounded[i].Period < rounded[j].Period
		}
		return rounded[i].Amount.LessThan(rounded[j].Amount)
	})

	seen := make(map[string]bool, len(rounded))
	out := make([]PriceMention, 0, len(rounded))
	for _, m := range rounded {
		key := m.Key() + "|" + m.Amount.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// PricingPayload is the canonical, construction-stable value object a
// Snapshot wraps (spec.md §3).
type PricingPayload struct {
	SourceURL           string         `json:"sourceUrl"`
	PageTitle           string         `json:"pageTitle,omitempty"`
	PageDescription     string         `json:"pageDescription,omitempty"`
	PlanNames           []string       `json:"planNames"`
	PriceMentions       []PriceMention `json:"priceMentions"`
	CustomPricingHints  []string       `json:"customPricingHints"`
}

// Snapshot is one immutable observation of a pricing page (spec.md §3).
type Snapshot struct {
	SnapshotID    string        `gorm:"primaryKey;size:36" json:"snapshotId"`
	UserID        string        `gorm:"index;size:36" json:"userId"`
	CompanyID     string        `gorm:"index;size:36" json:"companyId"`
	CapturedAt    time.Time     `gorm:"index" json:"capturedAt"`
	CaptureMethod CaptureMethod `gorm:"size:20" json:"captureMethod"`
	Confidence    float64       `json:"confidence"`
	ContentHash   string        `gorm:"size:64;index" json:"contentHash"`

	// PricingPayloadJSON stores the canonical payload, following the
	// teacher's JSON-as-text convention for embedded value objects.
	PricingPayloadJSON string `gorm:"type:text" json:"-"`

	IsVerified bool `json:"isVerified"`

	CreatedAt time.Time `json:"createdAt"`
}

func (Snapshot) TableName() string { return "snapshots" }

// Payload unmarshals the stored canonical payload.
func (s *Snapshot) Payload() (PricingPayload, error) {
	var p PricingPayload
	if s.PricingPayloadJSON == "" {
		return p, nil
	}
	err := json.Unmarshal([]byte(s.PricingPayloadJSON), &p)
	return p, err
}

// SetPayload marshals and stores the canonical payload, and derives the
// IsVerified invariant from spec.md §3: confidence >= 0.75 and at least one
// price mention.
func (s *Snapshot) SetPayload(p PricingPayload) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.PricingPayloadJSON = string(data)
	s.IsVerified = s.Confidence >= 0.75 && len(p.PriceMentions) > 0
	return nil
}
