// Package insight implements the insight builder from spec.md §4.11: it
// decides whether a Diff clears the owner's entitlement gate and, if so,
// assembles the recommendation object attached to the resulting Insight.
package insight

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/models"
)

// SkipReason is the closed set of reasons an insight is not created.
type SkipReason string

const (
	SkipNoAccess      SkipReason = "no_access"
	SkipGateNotCleared SkipReason = "gate_not_cleared"
)

// Input bundles the per-call parameters spec.md §4.11 lists.
type Input struct {
	User           models.User
	PlanTable      entitlements.PlanTable
	CompanyID      string
	DiffID         string
	Severity       models.Severity
	Verification   models.VerificationState
	NormalizedDiff models.NormalizedDiff
	Now            time.Time
}

// Result is the outcome of the insight builder: either a ready-to-persist
// Insight, or a reason it was skipped.
type Result struct {
	ShouldCreate bool
	SkipReason   SkipReason
	Insight      models.Insight
}

// Build runs the four steps from spec.md §4.11.
func Build(in Input) Result {
	ent := entitlements.Resolve(in.PlanTable, in.User, in.Now)
	if !ent.HasAccess {
		return Result{ShouldCreate: false, SkipReason: SkipNoAccess}
	}
	if !entitlements.CanGenerateInsight(ent, in.Severity) {
		return Result{ShouldCreate: false, SkipReason: SkipGateNotCleared}
	}

	summary := priceChangeSummary(in.NormalizedDiff)
	rec := buildRecommendation(in.Severity, in.Verification, summary, in.NormalizedDiff)

	ins := models.Insight{
		InsightID:    uuid.NewString(),
		UserID:       in.User.UserID,
		CompanyID:    in.CompanyID,
		DiffID:       in.DiffID,
		Model:        "rules-v1",
		SeverityGate: ent.SeverityGate,
		GeneratedAt:  in.Now,
		Feedback:     models.FeedbackNone,
	}
	_ = ins.SetRecommendation(rec)

	return Result{ShouldCreate: true, Insight: ins}
}

type changeSummary struct {
	added   int
	removed int
	updated int
}

func priceChangeSummary(nd models.NormalizedDiff) changeSummary {
	return changeSummary{added: nd.TotalAdded, removed: nd.TotalRemoved, updated: nd.TotalUpdated}
}

func buildRecommendation(sev models.Severity, verification models.VerificationState, summary changeSummary, nd models.NormalizedDiff) models.Recommendation {
	headline := fmt.Sprintf("%s-severity pricing change detected", capitalize(string(sev)))

	actionItems := []models.ActionItem{}
	if sev == models.SeverityHigh {
		actionItems = append(actionItems, models.ActionItem{
			Label:    "Review competitor positioning and update your pricing strategy within 24 hours.",
			Priority: 1,
		})
	}
	if verification == models.VerificationUnverified {
		actionItems = append(actionItems, models.ActionItem{
			Label:    "Manually verify the competitor pricing page before acting on this change.",
			Priority: 2,
		})
	}

	bucketSummaries := make([]models.BucketSummary, 0, len(nd.Buckets))
	for _, b := range nd.Buckets {
		bucketSummaries = append(bucketSummaries, models.BucketSummary{
			Currency: b.Currency,
			Period:   b.Period,
			Added:    len(b.Added),
			Removed:  len(b.Removed),
			Updated:  len(b.Updated),
		})
	}

	return models.Recommendation{
		Headline:         headline,
		Summary:          fmt.Sprintf("%d price(s) added, %d removed, %d updated.", summary.added, summary.removed, summary.updated),
		RiskLabel:        string(sev),
		SeverityEcho:     sev,
		VerificationEcho: verification,
		ActionItems:      actionItems,
		BucketSummaries:  bucketSummaries,
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-32) + s[1:]
}
