package insight_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/insight"
	"github.com/pricelens/core/internal/models"
)

func TestBuildSkipsWhenNoAccess(t *testing.T) {
	result := insight.Build(insight.Input{
		User:      models.User{TrialStatus: models.TrialExpired},
		PlanTable: entitlements.DefaultPlanTable(),
		Severity:  models.SeverityHigh,
		Now:       time.Now(),
	})
	assert.False(t, result.ShouldCreate)
	assert.Equal(t, insight.SkipNoAccess, result.SkipReason)
}

func TestBuildSkipsWhenGateNotCleared(t *testing.T) {
	tag := "starter"
	result := insight.Build(insight.Input{
		User:      models.User{HasPaidAccess: true, PaidPlanPriceTag: &tag},
		PlanTable: entitlements.DefaultPlanTable(),
		Severity:  models.SeverityMedium,
		Now:       time.Now(),
	})
	assert.False(t, result.ShouldCreate)
	assert.Equal(t, insight.SkipGateNotCleared, result.SkipReason)
}

func TestBuildEmitsHighSeverityActionItem(t *testing.T) {
	tag := "pro"
	result := insight.Build(insight.Input{
		User:         models.User{UserID: "u1", HasPaidAccess: true, PaidPlanPriceTag: &tag},
		PlanTable:    entitlements.DefaultPlanTable(),
		CompanyID:    "c1",
		DiffID:       "d1",
		Severity:     models.SeverityHigh,
		Verification: models.VerificationUnverified,
		Now:          time.Now(),
	})
	assert.True(t, result.ShouldCreate)
	assert.Equal(t, "rules-v1", result.Insight.Model)
	assert.Equal(t, models.FeedbackNone, result.Insight.Feedback)
	assert.Equal(t, models.GateHighAndMedium, result.Insight.SeverityGate)

	rec, err := result.Insight.Recommendation()
	assert.NoError(t, err)
	assert.Len(t, rec.ActionItems, 2, "expects both the high-severity and unverified action items")
}
