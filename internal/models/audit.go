package models

import (
	"encoding/json"
	"time"
)

// AuditOutcome is the closed set of audit event outcomes.
type AuditOutcome string

const (
	AuditSuccess  AuditOutcome = "success"
	AuditRejected AuditOutcome = "rejected"
	AuditFailure  AuditOutcome = "failure"
)

// CompetitorAuditEvent is a concrete sink for the "emit an audit event"
// language scattered through spec.md §4.8, §5 and §7 — crawl-lifecycle and
// company-mutation events the dashboard and support tooling can read back.
type CompetitorAuditEvent struct {
	EventID     string       `gorm:"primaryKey;size:36" json:"eventId"`
	UserID      string       `gorm:"index;size:36" json:"userId"`
	CompanyID   *string      `gorm:"index;size:36" json:"companyId,omitempty"`
	EventType   string       `gorm:"size:100;index" json:"eventType"`
	Outcome     AuditOutcome `gorm:"size:20" json:"outcome"`
	MetadataJSON string      `gorm:"type:text" json:"-"`
	OccurredAt  time.Time    `gorm:"index" json:"occurredAt"`
}

func (CompetitorAuditEvent) TableName() string { return "competitor_audit_events" }

// Metadata unmarshals the stored metadata bag.
func (e *CompetitorAuditEvent) Metadata() (map[string]interface{}, error) {
	if e.MetadataJSON == "" {
		return nil, nil
	}
	var m map[string]interface{}
	err := json.Unmarshal([]byte(e.MetadataJSON), &m)
	return m, err
}

// SetMetadata marshals and stores the metadata bag.
func (e *CompetitorAuditEvent) SetMetadata(m map[string]interface{}) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	e.MetadataJSON = string(data)
	return nil
}
