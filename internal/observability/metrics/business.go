package metrics

import (
	"time"
)

// Fetch attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomePermanent = "permanent"
)

// RecordFetchAttempt records one HTTP attempt against host.
// Size is only observed for successful attempts.
func RecordFetchAttempt(host, outcome string, duration time.Duration, size int) {
	FetchAttemptsTotal.WithLabelValues(host, outcome).Inc()
	FetchDuration.WithLabelValues(host).Observe(duration.Seconds())
	if outcome == OutcomeSuccess && size > 0 {
		FetchResponseSize.Observe(float64(size))
	}
}

// RecordRun records a finished run. newItems is added to the new items
// counter only for completed runs.
func RecordRun(job, state string, duration time.Duration, newItems int) {
	RunsTotal.WithLabelValues(job, state).Inc()
	RunDuration.WithLabelValues(job).Observe(duration.Seconds())
	if newItems > 0 {
		NewItemsTotal.WithLabelValues(job).Add(float64(newItems))
	}
}

// RecordRunFailure records the reason of a failed run.
func RecordRunFailure(job, reason string) {
	RunFailuresTotal.WithLabelValues(job, reason).Inc()
}

// UpdateKnownItems sets the known set size for job.
func UpdateKnownItems(job string, count int) {
	KnownItems.WithLabelValues(job).Set(float64(count))
}

// RecordStoreOperation records a change store load or save.
//
// Example:
//
//	start := time.Now()
//	err := store.Save(ctx, known)
//	metrics.RecordStoreOperation("file", "save", time.Since(start), err)
func RecordStoreOperation(backend, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	if err != nil {
		StoreErrorsTotal.WithLabelValues(backend, operation).Inc()
	}
}
