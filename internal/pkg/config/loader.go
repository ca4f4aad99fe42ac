// Package config provides fail-open environment variable loading and validation.
//
// Every loader returns a ConfigLoadResult: when a variable is set but invalid,
// the default is used, FallbackApplied is set and a human readable warning is
// attached. Callers decide how to surface the warning; Loader does it with a
// structured log record and a Prometheus fallback counter.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ConfigLoadResult holds the outcome of loading one configuration value.
type ConfigLoadResult struct {
	// Value is the loaded value, or the default when unset or invalid
	Value interface{}

	// Warnings describes why a fallback was applied
	Warnings []string

	// FallbackApplied is true when the variable was set but rejected
	FallbackApplied bool
}

// LoadEnvString returns the variable's value, or defaultValue when unset or empty.
func LoadEnvString(envKey, defaultValue string) string {
	value := os.Getenv(envKey)
	if value == "" {
		return defaultValue
	}
	return value
}

// loadParsed is the common path of every typed loader: read, parse, validate,
// fall back to the default on any failure.
func loadParsed[T any](envKey string, defaultValue T, parse func(string) (T, error), validator func(T) error) ConfigLoadResult {
	raw := os.Getenv(envKey)
	if raw == "" {
		return ConfigLoadResult{Value: defaultValue}
	}

	fallback := func(reason error) ConfigLoadResult {
		return ConfigLoadResult{
			Value: defaultValue,
			Warnings: []string{fmt.Sprintf(
				"Invalid %s='%s': %v, falling back to default '%v'",
				envKey, raw, reason, defaultValue,
			)},
			FallbackApplied: true,
		}
	}

	parsed, err := parse(raw)
	if err != nil {
		return fallback(err)
	}
	if validator != nil {
		if err := validator(parsed); err != nil {
			return fallback(err)
		}
	}
	return ConfigLoadResult{Value: parsed}
}

// LoadEnvWithFallback loads a string variable checked by validator.
func LoadEnvWithFallback(envKey, defaultValue string, validator func(string) error) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, func(s string) (string, error) { return s, nil }, validator)
}

// LoadEnvDuration loads a duration in time.ParseDuration format ("30s", "5m").
func LoadEnvDuration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, time.ParseDuration, validator)
}

// LoadEnvInt loads a base-10 integer.
func LoadEnvInt(envKey string, defaultValue int, validator func(int) error) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, func(s string) (int, error) {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvInt64 loads a base-10 64-bit integer, used for byte sizes.
func LoadEnvInt64(envKey string, defaultValue int64, validator func(int64) error) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, func(s string) (int64, error) {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer format")
		}
		return v, nil
	}, validator)
}

// LoadEnvFloat loads a floating point number.
func LoadEnvFloat(envKey string, defaultValue float64, validator func(float64) error) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, func(s string) (float64, error) {
		return strconv.ParseFloat(s, 64)
	}, validator)
}

// LoadEnvBool loads a boolean accepting the strconv.ParseBool spellings.
func LoadEnvBool(envKey string, defaultValue bool) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, func(s string) (bool, error) {
		v, err := strconv.ParseBool(s)
		if err != nil {
			return false, fmt.Errorf("invalid boolean format, expected 'true' or 'false'")
		}
		return v, nil
	}, nil)
}

// LoadEnvStringList loads a comma separated list. Blank entries are dropped
// and surrounding whitespace is trimmed.
func LoadEnvStringList(envKey string, defaultValue []string, validator func([]string) error) ConfigLoadResult {
	return loadParsed(envKey, defaultValue, func(s string) ([]string, error) {
		return SplitList(s), nil
	}, validator)
}

// SplitList splits a comma separated string into trimmed, non-empty entries.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Loader applies the typed loaders and reports each fallback through a
// logger and optional ConfigMetrics.
type Loader struct {
	logger   *slog.Logger
	metrics  *ConfigMetrics
	fallback bool
}

// NewLoader returns a Loader. metrics may be nil.
func NewLoader(logger *slog.Logger, metrics *ConfigMetrics) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger, metrics: metrics}
}

func (l *Loader) report(field string, result ConfigLoadResult) {
	if !result.FallbackApplied {
		return
	}
	l.fallback = true
	if l.metrics != nil {
		l.metrics.RecordValidationError(field)
		l.metrics.RecordFallback(field, "default")
	}
	for _, warning := range result.Warnings {
		l.logger.Warn("Configuration fallback applied",
			slog.String("field", field),
			slog.String("warning", warning))
	}
}

// String loads a validated string.
func (l *Loader) String(envKey, defaultValue string, validator func(string) error) string {
	r := LoadEnvWithFallback(envKey, defaultValue, validator)
	l.report(fieldName(envKey), r)
	return r.Value.(string)
}

// Int loads a validated int.
func (l *Loader) Int(envKey string, defaultValue int, validator func(int) error) int {
	r := LoadEnvInt(envKey, defaultValue, validator)
	l.report(fieldName(envKey), r)
	return r.Value.(int)
}

// Int64 loads a validated int64.
func (l *Loader) Int64(envKey string, defaultValue int64, validator func(int64) error) int64 {
	r := LoadEnvInt64(envKey, defaultValue, validator)
	l.report(fieldName(envKey), r)
	return r.Value.(int64)
}

// Float loads a validated float64.
func (l *Loader) Float(envKey string, defaultValue float64, validator func(float64) error) float64 {
	r := LoadEnvFloat(envKey, defaultValue, validator)
	l.report(fieldName(envKey), r)
	return r.Value.(float64)
}

// Duration loads a validated duration.
func (l *Loader) Duration(envKey string, defaultValue time.Duration, validator func(time.Duration) error) time.Duration {
	r := LoadEnvDuration(envKey, defaultValue, validator)
	l.report(fieldName(envKey), r)
	return r.Value.(time.Duration)
}

// Bool loads a boolean.
func (l *Loader) Bool(envKey string, defaultValue bool) bool {
	r := LoadEnvBool(envKey, defaultValue)
	l.report(fieldName(envKey), r)
	return r.Value.(bool)
}

// StringList loads a validated comma separated list.
func (l *Loader) StringList(envKey string, defaultValue []string, validator func([]string) error) []string {
	r := LoadEnvStringList(envKey, defaultValue, validator)
	l.report(fieldName(envKey), r)
	return r.Value.([]string)
}

// FallbackApplied reports whether any value loaded so far fell back to its default.
func (l *Loader) FallbackApplied() bool {
	return l.fallback
}

// Finish records the load timestamp and the overall fallback state.
func (l *Loader) Finish() {
	if l.metrics == nil {
		return
	}
	l.metrics.SetFallbackActive("", l.fallback)
	l.metrics.RecordLoadTimestamp()
}

// fieldName turns FETCH_MAX_ATTEMPTS into fetch_max_attempts for metric labels.
func fieldName(envKey string) string {
	return strings.ToLower(envKey)
}
