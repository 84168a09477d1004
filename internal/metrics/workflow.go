// Package metrics defines the Prometheus instruments for the workflow,
// the generation service, and the HTTP surface.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Label values shared by callers.
const (
	StatusOK    = "ok"
	StatusError = "error"

	OpExtract = "extract"
	OpQuery   = "query"
	OpSummary = "summary"
)

// Workflow Prometheus metrics.
var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartquery",
			Name:      "workflow_requests_total",
			Help:      "Total workflow requests by terminal state",
		},
		[]string{"terminal"},
	)

	WorkflowHops = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "chartquery",
			Name:      "workflow_hops",
			Help:      "State transitions used per request",
			Buckets:   prometheus.LinearBuckets(1, 1, 6),
		},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartquery",
			Name:      "generation_requests_total",
			Help:      "Total generation service calls",
		},
		[]string{"operation", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "chartquery",
			Name:      "generation_request_duration_seconds",
			Help:      "Generation service call duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"operation"},
	)

	GuardRewritesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "chartquery",
			Name:      "guard_rewrites_total",
			Help:      "Guarded queries rebuilt from the safe template",
		},
	)

	StoreQueriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartquery",
			Name:      "store_queries_total",
			Help:      "Record store queries",
		},
		[]string{"status"},
	)

	GenerationCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "chartquery",
			Name:      "generation_cache_total",
			Help:      "Generation cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)
)

var workflowMetricsRegistered bool

// RegisterWorkflowMetrics registers the workflow Prometheus metrics.
// Must be called once from main.
func RegisterWorkflowMetrics() {
	if workflowMetricsRegistered {
		return
	}

	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(WorkflowHops)
	prometheus.MustRegister(GenerationRequestsTotal)
	prometheus.MustRegister(GenerationRequestDuration)
	prometheus.MustRegister(GuardRewritesTotal)
	prometheus.MustRegister(StoreQueriesTotal)
	prometheus.MustRegister(GenerationCacheTotal)

	workflowMetricsRegistered = true
}
