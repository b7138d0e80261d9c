// Package billing defines the BillingEventLedger collaborator the core
// calls when a payment webhook event has been claimed for processing.
// spec.md keeps the payment webhook sender itself out of scope (§1);
// this package is the thin seam the real billing integration plugs
// into, plus a no-op stub for local/dev and tests.
package billing

import (
	"context"

	"go.uber.org/zap"

	"github.com/pricelens/core/internal/logging"
)

// Event is the normalized shape of a claimed webhook event, independent
// of whatever payment provider emitted it.
type Event struct {
	EventID   string
	EventType string
	UserID    string
	PriceTag  string
}

// Ledger records the business effect of a claimed billing event (e.g.
// upgrading a user's priceTag, starting or ending a trial). The core
// only calls this after WebhookEventRepository.ClaimForProcessing has
// fenced the event against concurrent/duplicate delivery.
type Ledger interface {
	Apply(ctx context.Context, event Event) error
}

// NoopLedger logs the event and does nothing else. It's the default
// wiring for local development, where no real payment provider is
// configured.
type NoopLedger struct {
	Log *logging.Logger
}

// Apply logs the event at info level and returns nil.
func (n NoopLedger) Apply(ctx context.Context, event Event) error {
	if n.Log != nil {
		n.Log.Info("billing event applied (noop ledger)",
			zap.String("eventId", event.EventID),
			zap.String("eventType", event.EventType),
			zap.String("userId", event.UserID),
		)
	}
	return nil
}
