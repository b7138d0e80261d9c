package models

import "time"

// WebhookEventStatus is the closed set of idempotency-ledger states.
type WebhookEventStatus string

const (
	WebhookProcessing WebhookEventStatus = "processing"
	WebhookProcessed  WebhookEventStatus = "processed"
	WebhookFailed     WebhookEventStatus = "failed"
)

// ProcessedWebhookEvent is the idempotency ledger for billing events
// delivered by the external billing collaborator (spec.md §3).
type ProcessedWebhookEvent struct {
	EventID       string             `gorm:"primaryKey;size:100" json:"eventId"`
	EventType     string             `gorm:"size:100" json:"eventType"`
	Status        WebhookEventStatus `gorm:"size:20" json:"status"`
	Attempts      int                `json:"attempts"`
	LockExpiresAt time.Time          `json:"lockExpiresAt"`
	ProcessedAt   *time.Time         `json:"processedAt,omitempty"`
	LastError     *string            `gorm:"size:400" json:"lastError,omitempty"`
}

func (ProcessedWebhookEvent) TableName() string { return "processed_webhook_events" }
