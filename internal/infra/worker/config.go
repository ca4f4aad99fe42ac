package worker

import (
	"fmt"
	"log/slog"

	"deltawatch/internal/pkg/config"
)

// WorkerConfig holds the scheduling configuration of the worker.
//
// All fields have defaults; invalid environment values fall back to them so
// the worker always starts with a usable schedule.
type WorkerConfig struct {
	// CronSchedule is the five-field cron expression runs are started on.
	// Default: "*/30 * * * *"
	CronSchedule string

	// Timezone is the IANA timezone the schedule is evaluated in.
	// Default: "UTC"
	Timezone string

	// HealthPort is the port of the health check server.
	// Range: 1024-65535
	// Default: 9091
	HealthPort int

	// MetricsPort is the port of the Prometheus and channel health server.
	// Range: 1024-65535
	// Default: 9090
	MetricsPort int

	// RunOnStart triggers one run immediately instead of waiting for the
	// first scheduled tick.
	// Default: true
	RunOnStart bool
}

// DefaultConfig returns a WorkerConfig with default values.
func DefaultConfig() WorkerConfig {
	return WorkerConfig{
		CronSchedule: "*/30 * * * *",
		Timezone:     "UTC",
		HealthPort:   9091,
		MetricsPort:  9090,
		RunOnStart:   true,
	}
}

// Validate checks every field and returns all problems together.
func (c *WorkerConfig) Validate() error {
	var errors []error

	if err := config.ValidateCronSchedule(c.CronSchedule); err != nil {
		errors = append(errors, fmt.Errorf("cron schedule: %w", err))
	}
	if err := config.ValidateTimezone(c.Timezone); err != nil {
		errors = append(errors, fmt.Errorf("timezone: %w", err))
	}
	if err := config.ValidateIntRange(c.HealthPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("health port: %w", err))
	}
	if err := config.ValidateIntRange(c.MetricsPort, 1024, 65535); err != nil {
		errors = append(errors, fmt.Errorf("metrics port: %w", err))
	}
	if c.HealthPort == c.MetricsPort {
		errors = append(errors, fmt.Errorf("health port and metrics port must differ, both are %d", c.HealthPort))
	}

	if len(errors) > 0 {
		return fmt.Errorf("validation failed: %v", errors)
	}
	return nil
}

// LoadConfigFromEnv loads the worker configuration with the fail-open
// strategy: an invalid value is logged, counted in metrics and replaced by
// its default. The returned error is always nil.
//
// Environment variables:
//   - CRON_SCHEDULE: cron expression (default: "*/30 * * * *")
//   - WORKER_TIMEZONE: IANA timezone name (default: "UTC")
//   - WORKER_HEALTH_PORT: integer 1024-65535 (default: 9091)
//   - METRICS_PORT: integer 1024-65535 (default: 9090)
//   - RUN_ON_START: boolean (default: true)
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	var cm *config.ConfigMetrics
	if metrics != nil {
		cm = metrics.ConfigMetrics
	}
	l := config.NewLoader(logger, cm)
	def := DefaultConfig()

	cfg := WorkerConfig{
		CronSchedule: l.String("CRON_SCHEDULE", def.CronSchedule, config.ValidateCronSchedule),
		Timezone:     l.String("WORKER_TIMEZONE", def.Timezone, config.ValidateTimezone),
		HealthPort: l.Int("WORKER_HEALTH_PORT", def.HealthPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		}),
		MetricsPort: l.Int("METRICS_PORT", def.MetricsPort, func(v int) error {
			return config.ValidateIntRange(v, 1024, 65535)
		}),
		RunOnStart: l.Bool("RUN_ON_START", def.RunOnStart),
	}
	l.Finish()

	return &cfg, nil
}
