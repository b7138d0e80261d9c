// Package digest implements the weekly digest job described structurally
// in spec.md §4.12: iterate users, skip ineligible ones, gather verified
// diffs from the lookback window, compose a message, and dispatch it
// through the (external, stubbed) DigestMailer collaborator.
package digest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/mailer"
	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/store"
)

// Config bundles the digest job's two tunable constants, externalized
// per SPEC_FULL.md §6 rather than baked into the job.
type Config struct {
	LookbackDays int
	MaxDiffs     int
	PlanTable    entitlements.PlanTable
}

// Job runs the weekly digest over every eligible user.
type Job struct {
	cfg    Config
	users  *store.UserRepository
	diffs  *store.DiffRepository
	mailer mailer.DigestMailer
	log    *logging.Logger
}

// New constructs a digest Job.
func New(cfg Config, users *store.UserRepository, diffs *store.DiffRepository, m mailer.DigestMailer, log *logging.Logger) *Job {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if cfg.MaxDiffs <= 0 {
		cfg.MaxDiffs = 30
	}
	return &Job{cfg: cfg, users: users, diffs: diffs, mailer: m, log: log}
}

// UserOutcome records what happened for one user's candidacy.
type UserOutcome string

const (
	OutcomeSent          UserOutcome = "sent"
	OutcomeNoEmail       UserOutcome = "no_email"
	OutcomeNotEligible   UserOutcome = "not_eligible"
	OutcomeRecentlySent  UserOutcome = "recently_sent"
	OutcomeNoDiffs       UserOutcome = "no_diffs"
	OutcomeDispatchError UserOutcome = "dispatch_error"
)

// Result summarizes one run of the digest job.
type Result struct {
	ByOutcome map[UserOutcome]int
}

// Run iterates every digest candidate and dispatches an email to each
// eligible one, per spec.md §4.12's digest entrypoint description.
func (j *Job) Run(ctx context.Context, now time.Time) (Result, error) {
	result := Result{ByOutcome: map[UserOutcome]int{}}

	candidates, err := j.users.ListDigestCandidates()
	if err != nil {
		return result, fmt.Errorf("list digest candidates: %w", err)
	}

	lookbackStart := now.AddDate(0, 0, -j.cfg.LookbackDays)

	for _, user := range candidates {
		outcome := j.processUser(ctx, user, now, lookbackStart)
		result.ByOutcome[outcome]++
	}
	return result, nil
}

func (j *Job) processUser(ctx context.Context, user models.User, now, lookbackStart time.Time) UserOutcome {
	if strings.TrimSpace(user.Email) == "" {
		return OutcomeNoEmail
	}

	ent := entitlements.Resolve(j.cfg.PlanTable, user, now)
	if !entitlements.CanReceiveWeeklyDigest(ent) {
		return OutcomeNotEligible
	}

	if user.LastDigestSentAt != nil && user.LastDigestSentAt.After(lookbackStart) {
		return OutcomeRecentlySent
	}

	verified, err := j.diffs.ListVerifiedSince(user.UserID, lookbackStart, j.cfg.MaxDiffs)
	if err != nil {
		j.log.Error("failed to list verified diffs for digest", zap.String("userId", user.UserID), zap.Error(err))
		return OutcomeDispatchError
	}
	if len(verified) == 0 {
		return OutcomeNoDiffs
	}

	composed := compose(user, verified)
	if err := j.mailer.SendDigest(ctx, composed); err != nil {
		j.log.Error("failed to dispatch digest", zap.String("userId", user.UserID), zap.Error(err))
		return OutcomeDispatchError
	}

	if err := j.users.MarkDigestSent(user.UserID, now); err != nil {
		j.log.Error("failed to record digest dispatch", zap.String("userId", user.UserID), zap.Error(err))
	}
	return OutcomeSent
}

// compose builds the subject/text/html body spec.md §4.12 describes:
// per-severity counts and one line per diff.
func compose(user models.User, diffs []models.Diff) mailer.Digest {
	counts := map[models.Severity]int{}
	for _, d := range diffs {
		counts[d.Severity]++
	}

	subject := fmt.Sprintf("Your weekly competitor pricing digest: %d change(s)", len(diffs))

	var text, html strings.Builder
	fmt.Fprintf(&text, "%d verified pricing change(s) this week (high: %d, medium: %d, low: %d)\n\n",
		len(diffs), counts[models.SeverityHigh], counts[models.SeverityMedium], counts[models.SeverityLow])
	fmt.Fprintf(&html, "<p>%d verified pricing change(s) this week (high: %d, medium: %d, low: %d)</p><ul>",
		len(diffs), counts[models.SeverityHigh], counts[models.SeverityMedium], counts[models.SeverityLow])

	for _, d := range diffs {
		line := fmt.Sprintf("[%s] competitor %s changed pricing on %s", d.Severity, d.CompanyID, d.DetectedAt.Format("2006-01-02"))
		fmt.Fprintf(&text, "- %s\n", line)
		fmt.Fprintf(&html, "<li>%s</li>", line)
	}
	html.WriteString("</ul>")

	return mailer.Digest{
		ToEmail:  user.Email,
		Subject:  subject,
		TextBody: text.String(),
		HTMLBody: html.String(),
	}
}
