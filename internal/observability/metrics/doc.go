// Package metrics provides Prometheus metrics registry and recording utilities.
//
// This package centralizes the run metrics of deltawatch:
//   - Fetch attempts by host and outcome, with duration and body size
//   - Runs by job and terminal state, new items found, known set size
//   - Change store load/save latency and failures
//
// All metrics are registered with the Prometheus default registry and
// exposed by the worker on /metrics.
//
// Example usage:
//
//	start := time.Now()
//	result, err := svc.Run(ctx)
//	metrics.RecordRun("listings", string(result.State), time.Since(start), len(result.NewItems))
package metrics
