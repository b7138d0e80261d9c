package runner

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pricelens/core/internal/discovery"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/extract"
	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/models"
)

// In-memory fakes for the runner's store-shaped collaborators, sized to
// exactly the companyStore/leaseStore/snapshotStore/diffStore/insightStore/
// userStore/auditStore interfaces so the pipeline runs against no real
// Postgres at all.

type fakeCompanyStore struct {
	updated []models.Company
}

func (f *fakeCompanyStore) UpdateCrawlResult(c *models.Company) error {
	f.updated = append(f.updated, *c)
	return nil
}
func (f *fakeCompanyStore) Update(c *models.Company) error {
	f.updated = append(f.updated, *c)
	return nil
}

type fakeLeaseStore struct {
	released map[string]time.Time
}

func (f *fakeLeaseStore) Release(companyID string, nextCrawlAt time.Time) error {
	if f.released == nil {
		f.released = map[string]time.Time{}
	}
	f.released[companyID] = nextCrawlAt
	return nil
}

type fakeSnapshotStore struct {
	created []models.Snapshot
	latest  map[string]*models.Snapshot
}

func (f *fakeSnapshotStore) Create(s *models.Snapshot) error {
	f.created = append(f.created, *s)
	return nil
}
func (f *fakeSnapshotStore) LatestForCompany(companyID string) (*models.Snapshot, error) {
	if f.latest == nil {
		return nil, nil
	}
	return f.latest[companyID], nil
}

type fakeDiffStore struct {
	created []models.Diff
}

func (f *fakeDiffStore) Create(d *models.Diff) error {
	f.created = append(f.created, *d)
	return nil
}

type fakeInsightStore struct {
	created []models.Insight
}

func (f *fakeInsightStore) Create(i *models.Insight) error {
	f.created = append(f.created, *i)
	return nil
}

type fakeUserStore struct {
	users map[string]models.User
}

func (f *fakeUserStore) GetByID(userID string) (*models.User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

type fakeAuditStore struct {
	recorded []models.CompetitorAuditEvent
}

func (f *fakeAuditStore) Record(e *models.CompetitorAuditEvent) error {
	f.recorded = append(f.recorded, *e)
	return nil
}

type fakeDiscoverer struct {
	result discovery.Result
	err    error
}

func (f *fakeDiscoverer) Discover(ctx context.Context, homepageURL, allowedDomain string) (discovery.Result, error) {
	return f.result, f.err
}

type fakeExtractor struct {
	result extract.Result
}

func (f *fakeExtractor) Extract(ctx context.Context, rawURL string) extract.Result {
	return f.result
}

func money(v string) decimal.Decimal {
	d, err := decimal.NewFromString(v)
	if err != nil {
		panic(err)
	}
	return d
}

func testPlanTable() entitlements.PlanTable {
	return entitlements.PlanTable{
		FallbackTier: "starter",
		TrialTier:    "trial",
		Rules: map[string]entitlements.PlanRule{
			"starter": {Tier: "starter", CompetitorLimit: 3, InsightSeverityGate: models.GateHighOnly},
			"trial":   {Tier: "trial", CompetitorLimit: 3, InsightSeverityGate: models.GateHighOnly},
		},
	}
}

func newScenarioRunner(companies companyStore, leases leaseStore, snapshots snapshotStore, diffs diffStore, insights insightStore, users userStore, audit auditStore, ext extractor, disc discoverer) *Runner {
	cfg := Config{
		Backoff: Backoff{
			Success: 24 * time.Hour,
			Error:   6 * time.Hour,
			Blocked: 36 * time.Hour,
			Manual:  48 * time.Hour,
		},
		PlanTable: testPlanTable(),
	}
	return newForTest(cfg, companies, leases, snapshots, diffs, insights, users, audit, ext, disc, &logging.Logger{Logger: zap.NewNop()})
}

// S1 — first crawl of a fresh competitor.
func TestScenarioS1FirstCrawlOfFreshCompetitor(t *testing.T) {
	now := time.Now().UTC()
	company := models.Company{
		CompanyID:   "c1",
		UserID:      "u1",
		HomepageURL: strPtr("https://acme.example"),
	}

	companies := &fakeCompanyStore{}
	leases := &fakeLeaseStore{}
	snapshots := &fakeSnapshotStore{}
	diffs := &fakeDiffStore{}
	insights := &fakeInsightStore{}
	users := &fakeUserStore{users: map[string]models.User{"u1": {UserID: "u1", HasPaidAccess: true}}}
	audit := &fakeAuditStore{}
	disc := &fakeDiscoverer{result: discovery.Result{RecommendedPrimaryURL: strPtr("https://acme.example/pricing")}}
	ext := &fakeExtractor{result: extract.Result{
		Status:        extract.StatusOK,
		ContentHash:   "hash-1",
		Confidence:    0.90,
		IsVerified:    true,
		CaptureMethod: models.CaptureStatic,
		PricingPayload: models.PricingPayload{
			SourceURL: "https://acme.example/pricing",
			PriceMentions: []models.PriceMention{
				{Amount: money("19.00"), Currency: "USD", Period: models.PeriodMonth},
				{Amount: money("49.00"), Currency: "USD", Period: models.PeriodMonth},
			},
		},
	}}

	r := newScenarioRunner(companies, leases, snapshots, diffs, insights, users, audit, ext, disc)
	result := r.Run(context.Background(), []models.Company{company}, now)

	assert.Equal(t, 1, result.ByState[TerminalOK])
	require.Len(t, snapshots.created, 1)
	assert.Empty(t, diffs.created, "no prior snapshot means no diff")
	assert.Empty(t, insights.created)
	require.Len(t, companies.updated, 2, "crawl-result update plus the discovered-primary-url update")
	assert.Equal(t, now.Add(24*time.Hour), leases.released["c1"])
}

// S2 — unchanged content short-circuits at the hash gate.
func TestScenarioS2UnchangedContentShortCircuitsAtHashGate(t *testing.T) {
	now := time.Now().UTC()
	hash := "same-hash"
	company := models.Company{
		CompanyID:         "c1",
		UserID:            "u1",
		PrimaryPricingURL: strPtr("https://acme.example/pricing"),
		LatestContentHash: &hash,
	}

	companies := &fakeCompanyStore{}
	leases := &fakeLeaseStore{}
	snapshots := &fakeSnapshotStore{}
	diffs := &fakeDiffStore{}
	insights := &fakeInsightStore{}
	users := &fakeUserStore{users: map[string]models.User{"u1": {UserID: "u1", HasPaidAccess: true}}}
	audit := &fakeAuditStore{}
	ext := &fakeExtractor{result: extract.Result{Status: extract.StatusOK, ContentHash: hash, Confidence: 0.9}}

	r := newScenarioRunner(companies, leases, snapshots, diffs, insights, users, audit, ext, &fakeDiscoverer{})
	result := r.Run(context.Background(), []models.Company{company}, now)

	assert.Equal(t, 1, result.ByState[TerminalUnchanged])
	assert.Empty(t, snapshots.created)
	assert.Empty(t, diffs.created)
	assert.Equal(t, now.Add(24*time.Hour), leases.released["c1"])
}

// S3 — a medium-magnitude price change clears the high-severity gate and
// emits an insight.
func TestScenarioS3MediumPriceChangeEmitsHighSeverityInsight(t *testing.T) {
	now := time.Now().UTC()
	company := models.Company{
		CompanyID:         "c1",
		UserID:            "u1",
		PrimaryPricingURL: strPtr("https://acme.example/pricing"),
	}
	prior := models.Snapshot{SnapshotID: "s0", CompanyID: "c1", IsVerified: true}
	require.NoError(t, prior.SetPayload(models.PricingPayload{
		PriceMentions: []models.PriceMention{
			{Amount: money("19.00"), Currency: "USD", Period: models.PeriodMonth},
			{Amount: money("49.00"), Currency: "USD", Period: models.PeriodMonth},
		},
	}))

	companies := &fakeCompanyStore{}
	leases := &fakeLeaseStore{}
	snapshots := &fakeSnapshotStore{latest: map[string]*models.Snapshot{"c1": &prior}}
	diffs := &fakeDiffStore{}
	insights := &fakeInsightStore{}
	users := &fakeUserStore{users: map[string]models.User{"u1": {UserID: "u1", HasPaidAccess: true}}}
	audit := &fakeAuditStore{}
	ext := &fakeExtractor{result: extract.Result{
		Status:      extract.StatusOK,
		ContentHash: "hash-2",
		Confidence:  0.9,
		IsVerified:  true,
		PricingPayload: models.PricingPayload{
			PriceMentions: []models.PriceMention{
				{Amount: money("19.00"), Currency: "USD", Period: models.PeriodMonth},
				{Amount: money("59.00"), Currency: "USD", Period: models.PeriodMonth},
			},
		},
	}}

	r := newScenarioRunner(companies, leases, snapshots, diffs, insights, users, audit, ext, &fakeDiscoverer{})
	result := r.Run(context.Background(), []models.Company{company}, now)

	assert.Equal(t, 1, result.ByState[TerminalOK])
	require.Len(t, diffs.created, 1)
	assert.Equal(t, models.SeverityHigh, diffs.created[0].Severity)
	require.Len(t, insights.created, 1)
}

// S4 — a bot-blocked fetch yields no snapshot and the longer blocked backoff.
func TestScenarioS4BotBlockedFetchSkipsSnapshot(t *testing.T) {
	now := time.Now().UTC()
	company := models.Company{
		CompanyID:         "c1",
		UserID:            "u1",
		PrimaryPricingURL: strPtr("https://acme.example/pricing"),
	}

	companies := &fakeCompanyStore{}
	leases := &fakeLeaseStore{}
	snapshots := &fakeSnapshotStore{}
	diffs := &fakeDiffStore{}
	insights := &fakeInsightStore{}
	users := &fakeUserStore{users: map[string]models.User{"u1": {UserID: "u1", HasPaidAccess: true}}}
	audit := &fakeAuditStore{}
	ext := &fakeExtractor{result: extract.Result{Status: extract.StatusBlocked, Error: "Attention Required | Cloudflare"}}

	r := newScenarioRunner(companies, leases, snapshots, diffs, insights, users, audit, ext, &fakeDiscoverer{})
	result := r.Run(context.Background(), []models.Company{company}, now)

	assert.Equal(t, 1, result.ByState[TerminalBlocked])
	assert.Empty(t, snapshots.created)
	assert.Equal(t, now.Add(36*time.Hour), leases.released["c1"])
	require.Len(t, audit.recorded, 1)
	assert.Equal(t, "crawl_blocked", audit.recorded[0].EventType)
}

func strPtr(s string) *string { return &s }
