// Package tracing provides OpenTelemetry tracing integration.
//
// Init installs a tracer provider and the W3C trace-context propagator.
// Transport wraps an http.RoundTripper so every outbound fetch becomes a
// client span and carries a traceparent header.
//
// Example usage:
//
//	shutdown := tracing.Init("deltawatch")
//	defer func() { _ = shutdown(context.Background()) }()
//
//	client := &http.Client{Transport: tracing.NewTransport(http.DefaultTransport)}
package tracing
