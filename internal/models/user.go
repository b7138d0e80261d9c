package models

import "time"

// TrialStatus is the closed set of trial lifecycle states (spec.md §3).
type TrialStatus string

const (
	TrialNotStarted TrialStatus = "not_started"
	TrialActive     TrialStatus = "active"
	TrialExpired    TrialStatus = "expired"
	TrialConverted  TrialStatus = "converted"
)

// User is owned by an external auth/billing collaborator; the core only
// reads it. Kept here as a gorm model so the runner and entitlements
// resolver can load it directly against the shared database.
type User struct {
	UserID           string    `gorm:"primaryKey;size:36" json:"userId"`
	Email            string    `gorm:"size:255" json:"email"`
	PaidPlanPriceTag *string   `gorm:"size:100" json:"paidPlanPriceTag,omitempty"`
	HasPaidAccess    bool      `json:"hasPaidAccess"`
	TrialStatus      TrialStatus `gorm:"size:20" json:"trialStatus"`
	TrialStartedAt   *time.Time `json:"trialStartedAt,omitempty"`
	TrialEndsAt      *time.Time `json:"trialEndsAt,omitempty"`
	LastDigestSentAt *time.Time `json:"lastDigestSentAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TableName pins the table name so it survives model renames.
func (User) TableName() string { return "users" }
