// Package runner implements the per-item batch state machine from
// spec.md §4.8: Claimed → Resolving → Fetching → HashGate →
// SnapshotCreated → DiffComputed → InsightDecided → Finalized, with
// terminal sub-states NoUrl, Blocked, ManualNeeded, Errored, Unchanged,
// and NotEntitled. Claimed companies are processed with a bounded
// fan-out (spec.md §5: "up to a small fan-out, e.g. ≤ 4"), and every
// item's Finalize step runs regardless of where in the pipeline it
// stopped, including on panic.
package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pricelens/core/internal/diffengine"
	"github.com/pricelens/core/internal/discovery"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/extract"
	"github.com/pricelens/core/internal/insight"
	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/metrics"
	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/normalize"
	"github.com/pricelens/core/internal/store"
)

// MaxFanOut bounds concurrent item processing within one batch
// invocation, per spec.md §5.
const MaxFanOut = 4

// TerminalState is the closed set of per-item terminal sub-states
// spec.md §4.8 names, alongside the plain "ok" success path.
type TerminalState string

const (
	TerminalOK           TerminalState = "ok"
	TerminalUnchanged    TerminalState = "unchanged"
	TerminalNoURL        TerminalState = "no_url"
	TerminalNotEntitled  TerminalState = "not_entitled"
	TerminalBlocked      TerminalState = "blocked"
	TerminalManualNeeded TerminalState = "manual_needed"
	TerminalErrored      TerminalState = "errored"
)

// finalStatus maps a terminal state onto the models.CrawlStatus the
// finalizer persists on the company.
func (t TerminalState) finalStatus() models.CrawlStatus {
	switch t {
	case TerminalOK, TerminalUnchanged:
		return models.CrawlOK
	case TerminalNotEntitled:
		return models.CrawlIdle
	case TerminalBlocked:
		return models.CrawlBlocked
	case TerminalNoURL, TerminalManualNeeded:
		return models.CrawlManualNeeded
	default:
		return models.CrawlError
	}
}

// Backoff is the tunable next-delay table from spec.md §4.8.
type Backoff struct {
	Success time.Duration
	Error   time.Duration
	Blocked time.Duration
	Manual  time.Duration
}

// DelayFor returns the next-crawl delay for a finalized status.
func (b Backoff) DelayFor(status models.CrawlStatus) time.Duration {
	switch status {
	case models.CrawlOK:
		return b.Success
	case models.CrawlError:
		return b.Error
	case models.CrawlBlocked:
		return b.Blocked
	case models.CrawlManualNeeded:
		return b.Manual
	default:
		return b.Success
	}
}

// Config bundles the tunables a Runner needs beyond its collaborators.
// Discovery and extraction have their own transport configs baked into
// the *discovery.Discoverer / *extract.Extractor passed to New.
type Config struct {
	Backoff   Backoff
	PlanTable entitlements.PlanTable
}

// The collaborator interfaces below are sized to exactly what Run's
// pipeline calls on each store repository. *store.XRepository already
// satisfies each one, so production wiring in cmd/server needs no
// change; tests substitute an in-memory fake instead of a real
// Postgres handle.
type companyStore interface {
	UpdateCrawlResult(c *models.Company) error
	Update(c *models.Company) error
}

type leaseStore interface {
	Release(companyID string, nextCrawlAt time.Time) error
}

type snapshotStore interface {
	Create(s *models.Snapshot) error
	LatestForCompany(companyID string) (*models.Snapshot, error)
}

type diffStore interface {
	Create(d *models.Diff) error
}

type insightStore interface {
	Create(i *models.Insight) error
}

type userStore interface {
	GetByID(userID string) (*models.User, error)
}

type auditStore interface {
	Record(e *models.CompetitorAuditEvent) error
}

type extractor interface {
	Extract(ctx context.Context, rawURL string) extract.Result
}

type discoverer interface {
	Discover(ctx context.Context, homepageURL, allowedDomain string) (discovery.Result, error)
}

// Runner wires the pipeline's collaborators and drives one claimed
// batch through the per-item state machine.
type Runner struct {
	cfg Config

	companies companyStore
	leases    leaseStore
	snapshots snapshotStore
	diffs     diffStore
	insights  insightStore
	users     userStore
	audit     auditStore

	extractor  extractor
	discoverer discoverer

	metrics *metrics.Registry
	log     *logging.Logger
}

// New constructs a Runner.
func New(
	cfg Config,
	companies *store.CompanyRepository,
	leases *store.LeaseRepository,
	snapshots *store.SnapshotRepository,
	diffs *store.DiffRepository,
	insights *store.InsightRepository,
	users *store.UserRepository,
	audit *store.AuditRepository,
	ext *extract.Extractor,
	disc *discovery.Discoverer,
	reg *metrics.Registry,
	log *logging.Logger,
) *Runner {
	return &Runner{
		cfg: cfg, companies: companies, leases: leases, snapshots: snapshots, diffs: diffs,
		insights: insights, users: users, audit: audit,
		extractor: ext, discoverer: disc, metrics: reg, log: log,
	}
}

// newForTest constructs a Runner directly from interface fakes,
// bypassing New's concrete *store.XRepository parameter types. Used
// only by the in-memory fake-store integration tests.
func newForTest(
	cfg Config,
	companies companyStore,
	leases leaseStore,
	snapshots snapshotStore,
	diffs diffStore,
	insights insightStore,
	users userStore,
	audit auditStore,
	ext extractor,
	disc discoverer,
	log *logging.Logger,
) *Runner {
	return &Runner{
		cfg: cfg, companies: companies, leases: leases, snapshots: snapshots, diffs: diffs,
		insights: insights, users: users, audit: audit,
		extractor: ext, discoverer: disc, log: log,
	}
}

// ItemResult is the per-company outcome of one pass through the state
// machine, returned for observability and testing.
type ItemResult struct {
	CompanyID string
	Terminal  TerminalState
	Err       string
}

// BatchResult summarizes a whole batch invocation.
type BatchResult struct {
	Claimed int
	ByState map[TerminalState]int
	Items   []ItemResult
}

// itemState carries the transient, not-yet-persisted facts one item's
// pipeline steps accumulate before Finalize writes them in a single
// pass. Keeping these off models.Company avoids leaking runner-only
// bookkeeping into the domain model the rest of the service reads.
type itemState struct {
	company            models.Company
	discoveredCandidates []models.PricingURLCandidate
	newPrimaryURL        *string
	contentHash          string
	confidence           float64
	gotExtraction        bool
}

// Run drives every claimed company through the state machine with a
// bounded fan-out, and always returns (the per-item finalizer absorbs
// individual failures; Run itself returns no error).
func (r *Runner) Run(ctx context.Context, claimed []models.Company, now time.Time) BatchResult {
	start := time.Now()
	if r.metrics != nil {
		r.metrics.BatchInvocationsTotal.Inc()
		r.metrics.BatchItemsClaimed.Observe(float64(len(claimed)))
		defer func() { r.metrics.BatchDuration.Observe(time.Since(start).Seconds()) }()
	}

	result := BatchResult{Claimed: len(claimed), ByState: map[TerminalState]int{}}
	if len(claimed) == 0 {
		return result
	}

	results := make([]ItemResult, len(claimed))

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(MaxFanOut)
	for i := range claimed {
		i := i
		company := claimed[i]
		group.Go(func() error {
			results[i] = r.processItem(gctx, company, now)
			return nil
		})
	}
	_ = group.Wait()

	for _, item := range results {
		result.ByState[item.Terminal]++
	}
	result.Items = results
	return result
}

// processItem runs one company through Resolving → ... → Finalize. It
// never lets a panic escape: Finalize always persists the company's
// terminal state, even if a downstream step panicked.
func (r *Runner) processItem(ctx context.Context, company models.Company, now time.Time) (res ItemResult) {
	res = ItemResult{CompanyID: company.CompanyID}
	state := &itemState{company: company}

	defer func() {
		if rec := recover(); rec != nil {
			res.Terminal = TerminalErrored
			res.Err = "panic during item processing"
			r.log.Error("runner item panicked", zap.String("companyId", company.CompanyID), zap.Any("panic", rec))
		}
		r.finalize(state, res, now)
	}()

	// 1. Resolving
	primaryURL, ok := r.resolvePricingURL(ctx, state)
	if !ok {
		res.Terminal = TerminalNoURL
		return res
	}

	// 2. Entitlement check
	user, err := r.users.GetByID(state.company.UserID)
	if err != nil || user == nil {
		res.Terminal = TerminalErrored
		res.Err = "owning user not found"
		return res
	}
	ent := entitlements.Resolve(r.cfg.PlanTable, *user, now)
	if !ent.HasAccess {
		res.Terminal = TerminalNotEntitled
		return res
	}

	// 3. Fetching
	extraction := r.extractor.Extract(ctx, primaryURL)
	state.contentHash = extraction.ContentHash
	state.confidence = extraction.Confidence
	state.gotExtraction = true
	if r.metrics != nil {
		r.metrics.FetchOutcomesTotal.WithLabelValues(string(extraction.Status)).Inc()
	}
	switch extraction.Status {
	case extract.StatusBlocked:
		res.Terminal = TerminalBlocked
		res.Err = extraction.Error
		return res
	case extract.StatusManualNeeded:
		res.Terminal = TerminalManualNeeded
		res.Err = extraction.Error
		return res
	case extract.StatusError:
		res.Terminal = TerminalErrored
		res.Err = extraction.Error
		return res
	}

	// 4. HashGate
	if state.company.LatestContentHash != nil && *state.company.LatestContentHash == extraction.ContentHash {
		if r.metrics != nil {
			r.metrics.HashGateShortCircuits.Inc()
		}
		res.Terminal = TerminalUnchanged
		return res
	}

	// The prior snapshot is loaded before the new one is written, so the
	// diff in step 6 compares against the previous capture.
	previous, err := r.snapshots.LatestForCompany(state.company.CompanyID)
	if err != nil {
		res.Terminal = TerminalErrored
		res.Err = "failed to load prior snapshot"
		return res
	}

	// 5. SnapshotCreated
	snapshot := models.Snapshot{
		SnapshotID:    uuid.NewString(),
		UserID:        state.company.UserID,
		CompanyID:     state.company.CompanyID,
		CapturedAt:    now,
		CaptureMethod: extraction.CaptureMethod,
		Confidence:    extraction.Confidence,
		ContentHash:   extraction.ContentHash,
	}
	if err := snapshot.SetPayload(extraction.PricingPayload); err != nil {
		res.Terminal = TerminalErrored
		res.Err = "failed to encode snapshot payload"
		return res
	}
	if err := r.snapshots.Create(&snapshot); err != nil {
		res.Terminal = TerminalErrored
		res.Err = "failed to write snapshot"
		return res
	}
	if r.metrics != nil {
		r.metrics.SnapshotsWritten.Inc()
	}

	// 6. DiffComputed
	if previous == nil || previous.SnapshotID == snapshot.SnapshotID {
		res.Terminal = TerminalOK
		return res
	}
	previousPayload, err := previous.Payload()
	if err != nil {
		res.Terminal = TerminalErrored
		res.Err = "failed to decode prior snapshot payload"
		return res
	}

	nd, severity, verification, changed := diffengine.Compute(previousPayload, extraction.PricingPayload, snapshot.IsVerified, now)
	if !changed {
		res.Terminal = TerminalOK
		return res
	}

	diff := models.Diff{
		DiffID:             uuid.NewString(),
		UserID:             state.company.UserID,
		CompanyID:          state.company.CompanyID,
		PreviousSnapshotID: &previous.SnapshotID,
		CurrentSnapshotID:  snapshot.SnapshotID,
		Severity:           severity,
		VerificationState:  verification,
		DetectedAt:         now,
	}
	if err := diff.SetNormalized(nd); err != nil {
		res.Terminal = TerminalErrored
		res.Err = "failed to encode diff"
		return res
	}
	if err := r.diffs.Create(&diff); err != nil {
		res.Terminal = TerminalErrored
		res.Err = "failed to write diff"
		return res
	}
	if r.metrics != nil {
		r.metrics.DiffsWrittenBySeverity.WithLabelValues(string(severity)).Inc()
	}

	// 7. InsightDecided
	built := insight.Build(insight.Input{
		User: *user, PlanTable: r.cfg.PlanTable, CompanyID: state.company.CompanyID,
		DiffID: diff.DiffID, Severity: severity, Verification: verification,
		NormalizedDiff: nd, Now: now,
	})
	if built.ShouldCreate {
		if err := r.insights.Create(&built.Insight); err != nil {
			r.log.Warn("failed to write insight", zap.String("companyId", state.company.CompanyID), zap.Error(err))
		} else if r.metrics != nil {
			r.metrics.InsightsEmittedByGate.WithLabelValues(string(built.Insight.SeverityGate)).Inc()
		}
	} else if r.metrics != nil {
		r.metrics.InsightsSkippedTotal.Inc()
	}

	res.Terminal = TerminalOK
	return res
}

// resolvePricingURL implements step 1 (spec.md §4.8): prefer an
// already-set primary URL; otherwise run discovery off the homepage and
// merge candidates, picking up a newly-recommended primary if none was
// set. Returns ok=false when no URL could be resolved at all.
func (r *Runner) resolvePricingURL(ctx context.Context, state *itemState) (primaryURL string, ok bool) {
	company := &state.company
	if company.PrimaryPricingURL != nil && *company.PrimaryPricingURL != "" {
		return *company.PrimaryPricingURL, true
	}
	if company.HomepageURL == nil || *company.HomepageURL == "" {
		return "", false
	}

	result, err := r.discoverer.Discover(ctx, *company.HomepageURL, company.Domain)
	if err != nil {
		return "", false
	}

	existing, _ := company.Candidates()
	merged := discovery.MergeCandidates(existing, result.Candidates)
	state.discoveredCandidates = merged

	if result.RecommendedPrimaryURL != nil {
		if canonical, ok := normalize.NormalizeURL(*result.RecommendedPrimaryURL); ok {
			state.newPrimaryURL = &canonical
			return canonical, true
		}
	}
	if len(merged) > 0 {
		return merged[0].URL, true
	}
	return "", false
}

// finalize implements step 8 (spec.md §4.8): persist the terminal
// status unconditionally, clear the lease, schedule the next crawl, and
// emit an audit event for terminal failure statuses.
func (r *Runner) finalize(state *itemState, res ItemResult, now time.Time) {
	company := &state.company
	finalStatus := res.Terminal.finalStatus()

	company.LastCrawlAt = &now
	company.LastCrawlStatus = finalStatus
	if res.Err != "" {
		truncated := truncate(res.Err, 400)
		company.LastCrawlError = &truncated
	} else {
		company.LastCrawlError = nil
	}
	if state.gotExtraction {
		company.LatestContentHash = &state.contentHash
		company.LatestConfidence = &state.confidence
	}
	if err := r.companies.UpdateCrawlResult(company); err != nil {
		r.log.Error("failed to persist crawl result", zap.String("companyId", company.CompanyID), zap.Error(err))
	}

	if len(state.discoveredCandidates) > 0 || state.newPrimaryURL != nil {
		if len(state.discoveredCandidates) > 0 {
			_ = company.SetCandidates(state.discoveredCandidates)
		}
		if state.newPrimaryURL != nil && (company.PrimaryPricingURL == nil || *company.PrimaryPricingURL == "") {
			company.PrimaryPricingURL = state.newPrimaryURL
		}
		if err := r.companies.Update(company); err != nil {
			r.log.Error("failed to persist discovered candidates", zap.String("companyId", company.CompanyID), zap.Error(err))
		}
	}

	delay := r.cfg.Backoff.DelayFor(finalStatus)
	nextCrawlAt := now.Add(delay)
	if err := r.leases.Release(company.CompanyID, nextCrawlAt); err != nil {
		r.log.Error("failed to release lease", zap.String("companyId", company.CompanyID), zap.Error(err))
	}

	switch res.Terminal {
	case TerminalBlocked, TerminalManualNeeded, TerminalNoURL, TerminalErrored:
		event := models.CompetitorAuditEvent{
			EventID:    uuid.NewString(),
			UserID:     company.UserID,
			CompanyID:  &company.CompanyID,
			EventType:  "crawl_" + string(finalStatus),
			Outcome:    models.AuditFailure,
			OccurredAt: now,
		}
		_ = event.SetMetadata(map[string]interface{}{"terminalState": string(res.Terminal), "error": res.Err})
		if err := r.audit.Record(&event); err != nil {
			r.log.Warn("failed to record audit event", zap.String("companyId", company.CompanyID), zap.Error(err))
		}
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
