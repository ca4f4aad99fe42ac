package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("LOG_LEVEL", tt.value)
			assert.Equal(t, tt.want, Level())
		})
	}
}

func TestNewJSONLogger_RespectsLevel(t *testing.T) {
	// Arrange
	t.Setenv("LOG_LEVEL", "warn")
	var buf bytes.Buffer
	logger := NewJSONLogger(&buf)

	// Act
	logger.Info("hidden")
	logger.Warn("shown")

	// Assert
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

func TestNewTextLogger(t *testing.T) {
	assert.NotNil(t, NewTextLogger())
	assert.NotNil(t, NewLogger())
}

func TestWithRunID(t *testing.T) {
	// Arrange
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	ctx := ContextWithRunID(context.Background(), "run-123")

	// Act
	WithRunID(ctx, base).Info("run started")

	// Assert
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "run-123", record["run_id"])
	_, hasTrace := record["trace_id"]
	assert.False(t, hasTrace, "no span, no trace id")
}

func TestWithRunID_AddsTraceID(t *testing.T) {
	// Arrange
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	// Act
	WithRunID(ctx, base).Info("traced")

	// Assert
	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["trace_id"])
}

func TestWithRunID_Empty(t *testing.T) {
	base := slog.Default()
	assert.Same(t, base, WithRunID(context.Background(), base))
	assert.Equal(t, "", RunIDFromContext(context.Background()))
}

func TestWithFields(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))

	WithFields(base, map[string]interface{}{"job": "listings", "targets": 2}).Info("configured")

	var record map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "listings", record["job"])
	assert.Equal(t, float64(2), record["targets"])
}

func TestFromContext(t *testing.T) {
	assert.Same(t, slog.Default(), FromContext(context.Background()))

	custom := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, FromContext(ctx))
}
