package api

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pricelens/core/internal/config"
	"github.com/pricelens/core/internal/digest"
	"github.com/pricelens/core/internal/discovery"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/lease"
	"github.com/pricelens/core/internal/lock"
	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/metrics"
	"github.com/pricelens/core/internal/models"
	"github.com/pricelens/core/internal/ratelimit"
	"github.com/pricelens/core/internal/runner"
	"github.com/pricelens/core/internal/session"
	"github.com/pricelens/core/internal/store"
)

// userRepo is sized to exactly what the interactive handlers in this
// package call on the user repository. *store.UserRepository already
// satisfies it; the trial-race handler test
// substitutes an in-memory fake instead of a real Postgres handle.
type userRepo interface {
	GetByID(userID string) (*models.User, error)
	Update(u *models.User) error
}

// Server bundles every collaborator the HTTP surface calls into, plus
// the last in-process batch/digest results the cron handlers report
// back (mirroring the teacher's controller-holds-services layout).
type Server struct {
	cfg       *config.Config
	planTable entitlements.PlanTable

	locks        *lock.Acquirer
	leaseClaimer *lease.Claimer
	runner       *runner.Runner
	digestJob    *digest.Job
	limiter      *ratelimit.Limiter
	resolver     session.Resolver

	users     userRepo
	companies *store.CompanyRepository
	diffs     *store.DiffRepository
	snapshots *store.SnapshotRepository
	insights  *store.InsightRepository
	audit     *store.AuditRepository
	discoverer *discovery.Discoverer

	metrics *metrics.Registry
	log     *logging.Logger

	lastCrawlResult   runner.BatchResult
	lastDigestResult  digest.Result
}

// Deps bundles every collaborator NewServer needs, assembled by
// cmd/server/main.go.
type Deps struct {
	Cfg          *config.Config
	PlanTable    entitlements.PlanTable
	Locks        *lock.Acquirer
	LeaseClaimer *lease.Claimer
	Runner       *runner.Runner
	DigestJob    *digest.Job
	Limiter      *ratelimit.Limiter
	Resolver     session.Resolver

	Users      *store.UserRepository
	Companies  *store.CompanyRepository
	Diffs      *store.DiffRepository
	Snapshots  *store.SnapshotRepository
	Insights   *store.InsightRepository
	Audit      *store.AuditRepository
	Discoverer *discovery.Discoverer

	Metrics *metrics.Registry
	Log     *logging.Logger
}

// NewServer constructs a Server from its wired collaborators.
func NewServer(d Deps) *Server {
	return &Server{
		cfg: d.Cfg, planTable: d.PlanTable,
		locks: d.Locks, leaseClaimer: d.LeaseClaimer, runner: d.Runner, digestJob: d.DigestJob,
		limiter: d.Limiter, resolver: d.Resolver,
		users: d.Users, companies: d.Companies, diffs: d.Diffs, snapshots: d.Snapshots,
		insights: d.Insights, audit: d.Audit, discoverer: d.Discoverer,
		metrics: d.Metrics, log: d.Log,
	}
}

// Router builds the gin engine and wires every route from spec.md §6
// and SPEC_FULL.md §10, applying auth/cron-auth/rate-limit middleware
// per endpoint.
func (s *Server) Router() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLoggingMiddleware())

	engine.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"ok": true}) })

	cronSecret := s.cfg.CronSecret
	cronGroup := engine.Group("/cron", cronAuthMiddleware(cronSecret))
	cronGroup.GET("/crawl", s.crawlHandler)
	cronGroup.POST("/crawl", s.crawlHandler)
	cronGroup.GET("/digest", s.digestHandler)
	cronGroup.POST("/digest", s.digestHandler)

	authed := engine.Group("/", authMiddleware(s.resolver))

	authed.GET("/entitlements/me", s.entitlementsMeHandler)
	authed.POST("/trial/start", rateLimitMiddleware(s.limiter, "trial.start"), s.trialStartHandler)

	authed.POST("/companies", rateLimitMiddleware(s.limiter, "companies.create"), s.createCompanyHandler)
	authed.POST("/companies/:id/discover-pricing", rateLimitMiddleware(s.limiter, "companies.discover-pricing"), s.discoverPricingHandler)
	authed.PATCH("/companies/:id/primary-pricing", rateLimitMiddleware(s.limiter, "companies.primary-pricing"), s.primaryPricingHandler)
	authed.POST("/companies/:id/crawl-now", rateLimitMiddleware(s.limiter, "companies.crawl-now"), s.crawlNowHandler)
	authed.POST("/companies/:id/retry-crawl", rateLimitMiddleware(s.limiter, "companies.retry-crawl"), s.retryCrawlHandler)

	authed.GET("/dashboard/overview", s.overviewHandler)
	authed.GET("/dashboard/feed", s.feedHandler)
	authed.GET("/dashboard/comparison", s.comparisonHandler)

	authed.PATCH("/insights/:id/feedback", rateLimitMiddleware(s.limiter, "insights.feedback"), s.insightFeedbackHandler)

	return engine
}

// requestLoggingMiddleware logs every completed request and records
// the HTTP metrics vectors, mirroring the teacher's request-logging
// middleware in api_gateway.
func (s *Server) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		s.log.HTTPRequest(c.Request.Method, route, c.Writer.Status(), duration)
		if s.metrics != nil {
			status := statusClass(c.Writer.Status())
			s.metrics.HTTPRequestsTotal.WithLabelValues(route, status).Inc()
			s.metrics.HTTPRequestDuration.WithLabelValues(route).Observe(duration.Seconds())
		}
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
