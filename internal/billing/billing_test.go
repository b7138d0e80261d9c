package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/billing"
	"github.com/pricelens/core/internal/logging"
)

func TestNoopLedgerAppliesWithoutError(t *testing.T) {
	ledger := billing.NoopLedger{Log: logging.New(logging.Config{})}
	err := ledger.Apply(context.Background(), billing.Event{
		EventID:   "evt_1",
		EventType: "subscription.upgraded",
		UserID:    "user-123",
		PriceTag:  "pro",
	})
	assert.NoError(t, err)
}

func TestNoopLedgerToleratesNilLogger(t *testing.T) {
	ledger := billing.NoopLedger{}
	err := ledger.Apply(context.Background(), billing.Event{EventID: "evt_2"})
	assert.NoError(t, err)
}

func TestNoopLedgerSatisfiesLedgerInterface(t *testing.T) {
	var _ billing.Ledger = billing.NoopLedger{}
}
