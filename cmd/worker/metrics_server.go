package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"deltawatch/internal/usecase/notify"
)

// ChannelHealthResponse is the body of GET /health/channels.
type ChannelHealthResponse struct {
	Healthy  bool            `json:"healthy"`
	Channels []ChannelStatus `json:"channels"`
}

// ChannelStatus is the state of one notification channel.
type ChannelStatus struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	CircuitBreakerOpen  bool       `json:"circuit_breaker_open"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	DisabledUntil       *time.Time `json:"disabled_until,omitempty"`
}

// startMetricsServer serves /metrics and /health/channels on port until ctx
// is canceled.
func startMetricsServer(ctx context.Context, logger *slog.Logger, port int, notifyService notify.Service) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      metricsMux(notifyService),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("metrics server starting", slog.Int("port", port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", slog.Any("error", err))
		} else {
			logger.Info("metrics server stopped")
		}
	}()

	return server
}

func metricsMux(notifyService notify.Service) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/channels", channelHealthHandler(notifyService))
	return mux
}

// channelHealthHandler answers 200 while every enabled channel's breaker is
// closed and 503 otherwise.
func channelHealthHandler(notifyService notify.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := notifyService.GetChannelHealth()

		channels := make([]ChannelStatus, 0, len(statuses))
		healthy := true
		for _, s := range statuses {
			channels = append(channels, ChannelStatus{
				Name:                s.Name,
				Enabled:             s.Enabled,
				CircuitBreakerOpen:  s.CircuitBreakerOpen,
				ConsecutiveFailures: s.ConsecutiveFailures,
				DisabledUntil:       s.DisabledUntil,
			})
			if s.Enabled && s.CircuitBreakerOpen {
				healthy = false
			}
		}

		status := http.StatusOK
		if !healthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ChannelHealthResponse{Healthy: healthy, Channels: channels})
	}
}
