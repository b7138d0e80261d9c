// Package metrics exposes the Prometheus instrumentation for the crawl
// pipeline and its HTTP surface.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every counter/gauge/histogram the runner, extractor,
// diff engine and API layer record against.
type Registry struct {
	BatchInvocationsTotal  prometheus.Counter
	BatchSkippedLockActive prometheus.Counter
	BatchItemsClaimed      prometheus.Histogram
	BatchDuration          prometheus.Histogram

	FetchOutcomesTotal *prometheus.CounterVec
	FetchDuration      prometheus.Histogram

	HashGateShortCircuits prometheus.Counter
	SnapshotsWritten      prometheus.Counter

	DiffsWrittenBySeverity *prometheus.CounterVec
	InsightsEmittedByGate  *prometheus.CounterVec
	InsightsSkippedTotal   prometheus.Counter

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
}

// New registers and returns the metrics registry. Safe to call once per
// process; registering twice against the default registerer will panic,
// matching promauto's documented behavior.
func New() *Registry {
	return &Registry{
		BatchInvocationsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crawl_batch_invocations_total",
			Help: "Total number of scheduler batch invocations that acquired the lock and ran.",
		}),
		BatchSkippedLockActive: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crawl_batch_skipped_lock_active_total",
			Help: "Total number of invocations skipped because the invocation lock was held.",
		}),
		BatchItemsClaimed: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawl_batch_items_claimed",
			Help:    "Number of competitors claimed per batch invocation.",
			Buckets: prometheus.LinearBuckets(0, 2, 11),
		}),
		BatchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawl_batch_duration_seconds",
			Help:    "Wall-clock duration of a batch invocation.",
			Buckets: prometheus.DefBuckets,
		}),
		FetchOutcomesTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_fetch_outcomes_total",
			Help: "Extractor fetch outcomes by status.",
		}, []string{"status"}),
		FetchDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "crawl_fetch_duration_seconds",
			Help:    "Duration of pricing-page fetch attempts.",
			Buckets: prometheus.DefBuckets,
		}),
		HashGateShortCircuits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crawl_hash_gate_short_circuits_total",
			Help: "Total number of items short-circuited by the unchanged-content hash gate.",
		}),
		SnapshotsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crawl_snapshots_written_total",
			Help: "Total number of snapshots written.",
		}),
		DiffsWrittenBySeverity: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_diffs_written_total",
			Help: "Total number of diffs written, by severity.",
		}, []string{"severity"}),
		InsightsEmittedByGate: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "crawl_insights_emitted_total",
			Help: "Total number of insights emitted, by severity gate.",
		}, []string{"severity_gate"}),
		InsightsSkippedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "crawl_insights_skipped_total",
			Help: "Total number of diffs that did not clear the entitlement severity gate.",
		}),
		HTTPRequestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests by route and status class.",
		}, []string{"route", "status"}),
		HTTPRequestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
}
