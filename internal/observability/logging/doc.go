// Package logging provides structured logging utilities with context propagation.
//
// This package wraps the standard library's log/slog package with helper functions
// for common logging patterns used throughout the application.
//
// Key features:
//   - JSON (services) and text (CLI) output formats
//   - Run ID propagation
//   - Trace ID correlation with OpenTelemetry spans
//   - Configurable log levels via LOG_LEVEL
//
// Example usage:
//
//	logger := logging.NewLogger()
//	ctx := logging.ContextWithRunID(context.Background(), uuid.NewString())
//	logging.WithRunID(ctx, logger).Info("run started")
package logging
