// Package observability groups the structured logging, Prometheus metrics and
// OpenTelemetry tracing used by deltawatch.
//
// Subpackages:
//   - logging: slog constructors and run-id propagation through context
//   - metrics: run, fetch and change-store metrics
//   - tracing: tracer provider setup and an outbound HTTP transport that
//     starts a client span per request
//
// Example usage:
//
//	logger := logging.NewLogger()
//	ctx = logging.ContextWithRunID(ctx, runID)
//	logging.WithRunID(ctx, logger).Info("run started")
package observability
