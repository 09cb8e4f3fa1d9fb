package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// NOTE: All metrics are defined globally. The batch driver therefore also
// exports the (zero) HTTP and gRPC series; the textfile collector ignores them.

// namespace defines the global prefix for all metrics (e.g., shaderstrip_...).
const namespace = "shaderstrip"

// lowLatencyBuckets resolves single invocations, which are usually well under 5ms.
// Range: 100µs to 500ms.
var lowLatencyBuckets = []float64{.0001, .0005, .001, .002, .005, .010, .025, .050, .100, .500}

var (
	// -------------------------------------------------------------------------
	// REST API (HTTP)
	// -------------------------------------------------------------------------

	// APIReqDuration measures the latency of HTTP requests.
	// Metric: shaderstrip_api_http_handling_seconds
	APIReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_handling_seconds",
		Help:      "Time taken to handle HTTP requests in the strip API",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// APIReqTotal counts the total number of HTTP requests.
	// Metric: shaderstrip_api_http_requests_total
	APIReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests in the strip API",
	}, []string{"method", "route", "code"})

	// -------------------------------------------------------------------------
	// RPC API (gRPC)
	// -------------------------------------------------------------------------

	// RPCReqDuration measures the latency of gRPC calls. Strip calls carry a
	// single invocation, hence the low latency buckets.
	// Metric: shaderstrip_rpc_grpc_handling_seconds
	RPCReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "grpc_handling_seconds",
		Help:      "Time taken to handle gRPC calls in the strip service",
		Buckets:   lowLatencyBuckets,
	}, []string{"method"})

	// RPCReqTotal counts gRPC calls by method and status code.
	// Metric: shaderstrip_rpc_grpc_requests_total
	RPCReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "rpc",
		Name:      "grpc_requests_total",
		Help:      "Total gRPC calls in the strip service",
	}, []string{"method", "code"})

	// -------------------------------------------------------------------------
	// STRIPPING
	// -------------------------------------------------------------------------

	StripInvocations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "invocations_total",
		Help:      "Total compiler invocations passed through the rule chain",
	})

	StripVariantsIn = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "variants_in_total",
		Help:      "Variants received before stripping",
	})

	StripVariantsOut = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "variants_out_total",
		Help:      "Variants left after stripping",
	})

	// StripRemovals counts removed variants per rule. A whole-pass removal adds its variant count.
	// Metric: shaderstrip_strip_removed_variants_total
	StripRemovals = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "removed_variants_total",
		Help:      "Variants removed, by rule",
	}, []string{"rule"})

	StripDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "strip",
		Name:      "invocation_seconds",
		Help:      "Time spent running the rule chain over one invocation",
		Buckets:   lowLatencyBuckets,
	})

	// -------------------------------------------------------------------------
	// SESSIONS
	// -------------------------------------------------------------------------

	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "started_total",
		Help:      "Build sessions initialized",
	})

	SessionsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "finished_total",
		Help:      "Build sessions finished",
	}, []string{"status"}) // success, abandoned

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session",
		Name:      "active",
		Help:      "Sessions initialized but not yet finished",
	})

	// --- Session cache (otter) ---

	SessionCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session_cache",
		Name:      "hits_total",
		Help:      "Session lookups that found a live session",
	})

	SessionCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session_cache",
		Name:      "misses_total",
		Help:      "Session lookups for unknown or expired sessions",
	})

	// SessionCacheEvictions tracks sessions dropped by capacity or TTL.
	SessionCacheEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "session_cache",
		Name:      "evictions_total",
		Help:      "Sessions evicted by capacity or expiry",
	})

	SessionCacheItems = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "session_cache",
		Name:      "items_count",
		Help:      "Current number of sessions held in memory",
	})

	// -------------------------------------------------------------------------
	// REPORTS
	// -------------------------------------------------------------------------

	ReportDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "report",
		Name:      "deliveries_total",
		Help:      "Report deliveries per sink",
	}, []string{"sink", "status"}) // success, fail

	ReportDeliveryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "report",
		Name:      "delivery_seconds",
		Help:      "Time spent writing a report to a sink",
		Buckets:   prometheus.DefBuckets,
	}, []string{"sink"})

	// ReadinessFailures counts failed checks per report backend.
	ReadinessFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "readiness",
		Name:      "check_failures_total",
		Help:      "Readiness checks that failed, per component",
	}, []string{"component"})

	// -------------------------------------------------------------------------
	// DATABASE POOL
	// -------------------------------------------------------------------------

	// DBPoolConnections mirrors pgxpool.Stat, sampled by database.RunPoolMonitor.
	DBPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Connection pool state",
	}, []string{"state"}) // total, idle, in_use, max

	DBPoolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Successful connection acquisitions",
	})

	// DBPoolWaitCount counts acquisitions that had to wait for a free connection.
	DBPoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Acquisitions that waited because the pool was empty",
	})

	DBPoolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Total time spent acquiring connections",
	})
)
