package store

import (
	"time"

	"gorm.io/gorm"

	"github.com/pricelens/core/internal/models"
)

// WebhookEventRepository provides the idempotency ledger for billing
// events delivered by the external billing collaborator (spec.md §3).
type WebhookEventRepository struct {
	db *gorm.DB
}

// NewWebhookEventRepository constructs a WebhookEventRepository against the given handle.
func NewWebhookEventRepository(db *DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db.Gorm()}
}

// ClaimForProcessing inserts a processing-state row for the event if one
// doesn't already exist, or reclaims a stale processing lock that
// expired without completing. Returns false when the event has already
// been (or is being) handled by another worker.
func (r *WebhookEventRepository) ClaimForProcessing(eventID, eventType string, lockTTL time.Duration) (bool, error) {
	now := time.Now().UTC()
	tx := r.db.Exec(`
		INSERT INTO processed_webhook_events (event_id, event_type, status, attempts, lock_expires_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT (event_id) DO UPDATE SET
			status = ?,
			attempts = processed_webhook_events.attempts + 1,
			lock_expires_at = ?
		WHERE processed_webhook_events.status = ? AND processed_webhook_events.lock_expires_at <= ?
	`, eventID, eventType, models.WebhookProcessing, now.Add(lockTTL),
		models.WebhookProcessing, now.Add(lockTTL), models.WebhookProcessing, now)
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

// MarkProcessed finalizes an event as processed.
func (r *WebhookEventRepository) MarkProcessed(eventID string) error {
	now := time.Now().UTC()
	return r.db.Model(&models.ProcessedWebhookEvent{}).Where("event_id = ?", eventID).Updates(map[string]interface{}{
		"status":       models.WebhookProcessed,
		"processed_at": now,
	}).Error
}

// MarkFailed records a failed processing attempt with a truncated error
// message.
func (r *WebhookEventRepository) MarkFailed(eventID, lastError string) error {
	if len(lastError) > 400 {
		lastError = lastError[:400]
	}
	return r.db.Model(&models.ProcessedWebhookEvent{}).Where("event_id = ?", eventID).Updates(map[string]interface{}{
		"status":     models.WebhookFailed,
		"last_error": lastError,
	}).Error
}
