package worker

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"deltawatch/internal/pkg/config"
)

// WorkerMetrics provides Prometheus metrics for the scheduled worker.
// It embeds ConfigMetrics, so configuration fallbacks show up as
// worker_config_* series next to the job series:
//
//   - worker_job_runs_total{job,status}
//   - worker_job_duration_seconds{job}
//   - worker_job_new_items_total{job}
//   - worker_job_last_success_timestamp{job}
type WorkerMetrics struct {
	*config.ConfigMetrics

	JobRunsTotal            *prometheus.CounterVec
	JobDurationSeconds      *prometheus.HistogramVec
	JobNewItemsTotal        *prometheus.CounterVec
	JobLastSuccessTimestamp *prometheus.GaugeVec
}

// NewWorkerMetrics registers the worker metrics on the default registry.
func NewWorkerMetrics() *WorkerMetrics {
	return NewWorkerMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewWorkerMetricsWithRegistry registers the worker metrics on reg.
func NewWorkerMetricsWithRegistry(reg prometheus.Registerer) *WorkerMetrics {
	factory := promauto.With(reg)
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetricsWithRegistry("worker", reg),

		JobRunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_runs_total",
			Help: "Total number of scheduled runs by job and status (success/failure/skipped)",
		}, []string{"job", "status"}),

		JobDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "worker_job_duration_seconds",
			Help:    "Duration of scheduled runs in seconds",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"job"}),

		JobNewItemsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_job_new_items_total",
			Help: "Total number of new items found by scheduled runs",
		}, []string{"job"}),

		JobLastSuccessTimestamp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "worker_job_last_success_timestamp",
			Help: "Unix timestamp of the last successful scheduled run",
		}, []string{"job"}),
	}
}

// RecordJobRun counts a run of job with status.
func (m *WorkerMetrics) RecordJobRun(job, status string) {
	m.JobRunsTotal.WithLabelValues(job, status).Inc()
}

// RecordJobDuration observes the duration of a run.
func (m *WorkerMetrics) RecordJobDuration(job string, d time.Duration) {
	m.JobDurationSeconds.WithLabelValues(job).Observe(d.Seconds())
}

// RecordNewItems adds the number of new items a run found.
func (m *WorkerMetrics) RecordNewItems(job string, count int) {
	m.JobNewItemsTotal.WithLabelValues(job).Add(float64(count))
}

// RecordLastSuccess sets the last success timestamp of job to now.
func (m *WorkerMetrics) RecordLastSuccess(job string) {
	m.JobLastSuccessTimestamp.WithLabelValues(job).SetToCurrentTime()
}
