// Package entitlements implements the pure resolver from spec.md §4.7:
// it derives a user's competitor cap, insight severity gate, and digest
// eligibility from their paid/trial state, and nothing else.
package entitlements

import (
	"time"

	"github.com/pricelens/core/internal/models"
)

// AccessSource is the closed set of reasons a user has access.
type AccessSource string

const (
	SourcePaid  AccessSource = "paid"
	SourceTrial AccessSource = "trial"
	SourceNone  AccessSource = "none"
)

// Entitlements is the resolved access profile for one user at one
// instant.
type Entitlements struct {
	AccessSource            AccessSource
	HasAccess               bool
	Tier                    string
	CompetitorLimit         int
	SeverityGate            models.SeverityGate
	CanReceiveWeeklyDigest  bool
}

// AllowedSeverities returns the severities the resolved gate admits. It
// is empty when the user has no access at all.
func (e Entitlements) AllowedSeverities() map[models.Severity]bool {
	if !e.HasAccess {
		return map[models.Severity]bool{}
	}
	return e.SeverityGate.AllowedSeverities()
}

// PlanRule is one row of the configurable plan table (spec.md §4.7: "tuned
// by configuration, not hard-coded in logic").
type PlanRule struct {
	Tier                       string              `yaml:"tier"`
	CompetitorLimit            int                 `yaml:"competitorLimit"`
	InsightSeverityGate        models.SeverityGate `yaml:"insightSeverityGate"`
	CanReceiveWeeklyDigestPaid bool                `yaml:"canReceiveWeeklyDigestPaid"`
}

// PlanTable maps a priceTag to its plan rule, plus the fallback tier used
// when a priceTag isn't recognized.
type PlanTable struct {
	Rules          map[string]PlanRule `yaml:"rules"`
	FallbackTier   string              `yaml:"fallbackTier"`
	TrialTier      string              `yaml:"trialTier"`
}

// DefaultPlanTable is the built-in plan table from spec.md §4.7, used
// when no override configuration is supplied.
func DefaultPlanTable() PlanTable {
	return PlanTable{
		Rules: map[string]PlanRule{
			"starter": {Tier: "starter", CompetitorLimit: 3, InsightSeverityGate: models.GateHighOnly, CanReceiveWeeklyDigestPaid: true},
			"pro":     {Tier: "pro", CompetitorLimit: 10, InsightSeverityGate: models.GateHighAndMedium, CanReceiveWeeklyDigestPaid: true},
		},
		FallbackTier: "starter",
		TrialTier:    "starter",
	}
}

// Resolve is the pure function of (user, now) spec.md §4.7 describes.
//
// Open question resolved here: an unrecognized priceTag falls back to
// the "starter" tier rather than failing closed to no access, since a
// paying user should never lose coverage because of a catalog sync gap.
func Resolve(table PlanTable, user models.User, now time.Time) Entitlements {
	if user.HasPaidAccess {
		tag := table.FallbackTier
		if user.PaidPlanPriceTag != nil && *user.PaidPlanPriceTag != "" {
			tag = *user.PaidPlanPriceTag
		}
		rule, ok := table.Rules[tag]
		if !ok {
			rule = table.Rules[table.FallbackTier]
		}
		return Entitlements{
			AccessSource:           SourcePaid,
			HasAccess:              true,
			Tier:                   rule.Tier,
			CompetitorLimit:        rule.CompetitorLimit,
			SeverityGate:           rule.InsightSeverityGate,
			CanReceiveWeeklyDigest: rule.CanReceiveWeeklyDigestPaid,
		}
	}

	if user.TrialStatus == models.TrialActive && user.TrialEndsAt != nil && user.TrialEndsAt.After(now) {
		rule := table.Rules[table.TrialTier]
		return Entitlements{
			AccessSource:           SourceTrial,
			HasAccess:              true,
			Tier:                   table.TrialTier,
			CompetitorLimit:        rule.CompetitorLimit,
			SeverityGate:           rule.InsightSeverityGate,
			CanReceiveWeeklyDigest: false,
		}
	}

	return Entitlements{
		AccessSource:    SourceNone,
		HasAccess:       false,
		CompetitorLimit: 0,
	}
}

// CanGenerateInsight implements spec.md §4.7:
// canGenerateInsight(ent, sev) = ent.hasAccess ∧ sev ∈ ent.allowedSeverities.
func CanGenerateInsight(e Entitlements, sev models.Severity) bool {
	return e.HasAccess && e.AllowedSeverities()[sev]
}

// CanReceiveWeeklyDigest is a thin alias kept for call-site readability
// at the digest entrypoint (spec.md §4.12).
func CanReceiveWeeklyDigest(e Entitlements) bool {
	return e.CanReceiveWeeklyDigest
}

// RefreshTrialStatus implements the idempotent trial-status transition
// from spec.md §4.7: if trialStatus=active and either the user now has
// paid access (→ converted) or the trial has ended (→ expired), the
// transition is applied and reported so the caller can persist it.
func RefreshTrialStatus(user *models.User, now time.Time) (changed bool) {
	if user.TrialStatus != models.TrialActive {
		return false
	}
	if user.HasPaidAccess {
		user.TrialStatus = models.TrialConverted
		return true
	}
	if user.TrialEndsAt != nil && !user.TrialEndsAt.After(now) {
		user.TrialStatus = models.TrialExpired
		return true
	}
	return false
}
