// Command worker runs every configured deltawatch job on a cron schedule
// and serves health and metrics endpoints until it is signaled to stop.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"deltawatch/internal/app"
	"deltawatch/internal/config"
	workerPkg "deltawatch/internal/infra/worker"
	"deltawatch/internal/observability/logging"
	"deltawatch/internal/observability/slo"
	"deltawatch/internal/observability/tracing"
	pkgconfig "deltawatch/internal/pkg/config"
	"deltawatch/internal/usecase/watch"
)

func main() {
	logger := logging.NewLogger()
	slog.SetDefault(logger)
	os.Exit(run(logger))
}

func run(logger *slog.Logger) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := tracing.Init("deltawatch-worker")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Error("failed to shut down tracing", logging.Err(err))
		}
	}()

	workerMetrics := workerPkg.NewWorkerMetrics()
	workerConfig, _ := workerPkg.LoadConfigFromEnv(logger, workerMetrics)
	logger.Info("worker configuration loaded",
		slog.String("cron_schedule", workerConfig.CronSchedule),
		slog.String("timezone", workerConfig.Timezone),
		slog.Int("health_port", workerConfig.HealthPort),
		slog.Int("metrics_port", workerConfig.MetricsPort),
		slog.Bool("run_on_start", workerConfig.RunOnStart))

	cfg, err := config.Load(logger, pkgconfig.NewConfigMetrics("deltawatch"))
	if err != nil {
		logger.Error("invalid configuration", logging.Err(err))
		return 1
	}
	cfg.LogSummary(logger)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", logging.Err(err))
		return 1
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("failed to close database", logging.Err(err))
		}
	}()

	jobs, err := application.Jobs()
	if err != nil {
		logger.Error("failed to build jobs", logging.Err(err))
		return 1
	}

	startMetricsServer(ctx, logger, workerConfig.MetricsPort, application.Notifier())

	healthServer := workerPkg.NewHealthServer(fmt.Sprintf(":%d", workerConfig.HealthPort), logger)
	go func() {
		if err := healthServer.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("health server failed", logging.Err(err))
		}
	}()

	scheduler, err := workerPkg.NewScheduler(*workerConfig, workerMetrics, logger)
	if err != nil {
		logger.Error("failed to create scheduler", logging.Err(err))
		return 1
	}
	for _, job := range jobs {
		tracker := slo.NewTracker(job.Job(), slo.DefaultWindow)
		healthServer.Track(job.Job(), tracker)
		if err := scheduler.Add(job.Job(), runJob(job), tracker); err != nil {
			logger.Error("failed to schedule job", slog.String("job", job.Job()), logging.Err(err))
			return 1
		}
	}

	scheduler.Start()
	healthServer.SetReady(true)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetReady(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(stopCtx); err != nil {
		logger.Error("runs did not finish before shutdown", logging.Err(err))
		return 1
	}
	logger.Info("worker stopped")
	return 0
}

// runJob adapts a watch job to the scheduler.
func runJob(job *watch.Service) workerPkg.RunFunc {
	return func(ctx context.Context) (int, error) {
		result, err := job.Run(ctx)
		if err != nil {
			return 0, err
		}
		return len(result.NewItems), nil
	}
}
