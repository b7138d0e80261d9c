package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pricelens/core/internal/api"
	"github.com/pricelens/core/internal/cache"
	"github.com/pricelens/core/internal/config"
	"github.com/pricelens/core/internal/digest"
	"github.com/pricelens/core/internal/discovery"
	"github.com/pricelens/core/internal/entitlements"
	"github.com/pricelens/core/internal/extract"
	"github.com/pricelens/core/internal/lease"
	"github.com/pricelens/core/internal/lock"
	"github.com/pricelens/core/internal/logging"
	"github.com/pricelens/core/internal/mailer"
	"github.com/pricelens/core/internal/metrics"
	"github.com/pricelens/core/internal/ratelimit"
	"github.com/pricelens/core/internal/runner"
	"github.com/pricelens/core/internal/session"
	"github.com/pricelens/core/internal/store"
)

func main() {
	cfg := config.Load()

	logger := logging.New(logging.Config{
		Level:       cfg.LogLevel,
		ServiceName: "pricelens-core",
		Environment: cfg.Environment,
	})
	defer logger.Sync()

	db, err := store.Connect(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		logger.Fatal("failed to run migrations")
	}

	reg := metrics.New()
	redisHint := cache.New(cfg.RedisURL, logger)
	defer redisHint.Close()

	planTable, err := entitlements.LoadPlanTable(cfg.PlanTablePath)
	if err != nil {
		logger.Fatal("failed to load plan table")
	}

	users := store.NewUserRepository(db)
	companies := store.NewCompanyRepository(db)
	snapshots := store.NewSnapshotRepository(db)
	diffs := store.NewDiffRepository(db)
	insights := store.NewInsightRepository(db)
	audit := store.NewAuditRepository(db)
	lockRepo := store.NewLockRepository(db)
	leaseRepo := store.NewLeaseRepository(db)
	rateLimitRepo := store.NewRateLimitRepository(db)

	extractor := extract.New(extract.Config{
		FetchTimeout:  cfg.CrawlFetchTimeout,
		MaxHTMLLength: cfg.CrawlMaxHTMLLength,
	})
	discoverer := discovery.New(discovery.Config{
		FetchTimeout:               cfg.CrawlFetchTimeout,
		MaxHTMLLength:              cfg.CrawlMaxHTMLLength,
		PrimaryConfidenceThreshold: cfg.DiscoveryPrimaryConfidenceThreshold,
		PrimaryConfidenceGap:       cfg.DiscoveryPrimaryConfidenceGap,
	})

	locks := lock.New(lockRepo, redisHint, logger)
	leaseClaimer := lease.New(leaseRepo, cfg.CrawlLeaseTTL)
	limiter := ratelimit.New(rateLimitRepo, cfg.RateLimitWindow, cfg.RateLimitMaxRequests)

	batchRunner := runner.New(
		runner.Config{
			Backoff: runner.Backoff{
				Success: cfg.SuccessDelay,
				Error:   cfg.ErrorBackoff,
				Blocked: cfg.BlockedBackoff,
				Manual:  cfg.ManualBackoff,
			},
			PlanTable: planTable,
		},
		companies, leaseRepo, snapshots, diffs, insights, users, audit,
		extractor, discoverer, reg, logger,
	)

	var digestMailer mailer.DigestMailer = mailer.NoopMailer{Log: logger}
	digestJob := digest.New(digest.Config{
		LookbackDays: int(cfg.DigestLookback / (24 * time.Hour)),
		MaxDiffs:     cfg.DigestMaxDiffs,
		PlanTable:    planTable,
	}, users, diffs, digestMailer, logger)

	var resolver session.Resolver
	if cfg.Environment == "production" {
		resolver = session.NewJWTResolver(cfg.JWTSecret)
	} else {
		resolver = session.StubResolver{UserID: "dev-user"}
	}

	server := api.NewServer(api.Deps{
		Cfg: cfg, PlanTable: planTable,
		Locks: locks, LeaseClaimer: leaseClaimer, Runner: batchRunner, DigestJob: digestJob,
		Limiter: limiter, Resolver: resolver,
		Users: users, Companies: companies, Diffs: diffs, Snapshots: snapshots,
		Insights: insights, Audit: audit, Discoverer: discoverer,
		Metrics: reg, Log: logger,
	})

	httpServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      server.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting http server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("http server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown")
	}
	logger.Info("server shutdown complete")
}
