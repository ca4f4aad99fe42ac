package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch metrics track every HTTP attempt made by the fetcher, retries included
var (
	// FetchAttemptsTotal counts attempts by host and outcome
	// (success, transient, permanent)
	FetchAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_fetch_attempts_total",
			Help: "Total number of fetch attempts",
		},
		[]string{"host", "outcome"},
	)

	// FetchDuration measures a single attempt in seconds
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deltawatch_fetch_duration_seconds",
			Help:    "Duration of a single fetch attempt in seconds",
			Buckets: []float64{0.1, 0.2, 0.4, 0.8, 1.6, 3.2, 6.4, 12.8, 25.6},
		},
		[]string{"host"},
	)

	// FetchResponseSize measures successful response bodies in bytes
	FetchResponseSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "deltawatch_fetch_response_size_bytes",
			Help: "Fetched response body size in bytes",
			Buckets: []float64{
				1024, 4096, 16384, 65536, 262144,
				1048576, 4194304, 10485760, // up to 10MB
			},
		},
	)
)

// Run metrics track orchestrator outcomes
var (
	// RunsTotal counts finished runs by job and terminal state (done, failed)
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_runs_total",
			Help: "Total number of change detection runs",
		},
		[]string{"job", "state"},
	)

	// RunFailuresTotal counts failed runs by reason
	RunFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_run_failures_total",
			Help: "Total number of failed runs by reason",
		},
		[]string{"job", "reason"},
	)

	// RunDuration measures a whole run in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deltawatch_run_duration_seconds",
			Help:    "Change detection run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
		[]string{"job"},
	)

	// NewItemsTotal counts items reported as new
	NewItemsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_new_items_total",
			Help: "Total number of new items detected",
		},
		[]string{"job"},
	)

	// KnownItems tracks the size of the known set after the last run
	KnownItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "deltawatch_known_items",
			Help: "Number of item ids in the change store",
		},
		[]string{"job"},
	)
)

// Store metrics track change store operations
var (
	// StoreOperationDuration measures load and save latency
	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "deltawatch_store_operation_duration_seconds",
			Help:    "Change store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 10),
		},
		[]string{"backend", "operation"},
	)

	// StoreErrorsTotal counts failed store operations
	StoreErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "deltawatch_store_errors_total",
			Help: "Total number of change store errors",
		},
		[]string{"backend", "operation"},
	)
)
