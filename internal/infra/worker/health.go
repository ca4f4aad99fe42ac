package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SLOReporter exposes the service level indicators of one job.
type SLOReporter interface {
	SuccessRatio() float64
	Fresh(now time.Time) bool
}

// HealthServer serves the worker's probes:
//   - /health: liveness, always 200
//   - /health/ready: 200 once the scheduler is running, 503 before
//   - /health/slo: per-job success ratio and freshness, 503 when a job is stale
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	server  *http.Server
	now     func() time.Time

	mu   sync.RWMutex
	jobs map[string]SLOReporter
}

type healthResponse struct {
	Status string `json:"status"`
}

type sloResponse struct {
	Status string      `json:"status"`
	Jobs   []jobStatus `json:"jobs"`
}

type jobStatus struct {
	Job          string  `json:"job"`
	SuccessRatio float64 `json:"success_ratio"`
	Fresh        bool    `json:"fresh"`
}

// NewHealthServer creates a health server listening on addr. It starts not ready.
func NewHealthServer(addr string, logger *slog.Logger) *HealthServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: &atomic.Bool{},
		now:     time.Now,
		jobs:    make(map[string]SLOReporter),
	}
}

// Track adds a job to the /health/slo report.
func (h *HealthServer) Track(job string, r SLOReporter) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.jobs[job] = r
}

// Handler returns the probe routes.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	mux.HandleFunc("/health/slo", h.handleSLO)
	return mux
}

// Start serves until ctx is canceled, then shuts down within five seconds.
// It returns http.ErrServerClosed after a graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		h.logger.Info("health server starting", slog.String("addr", h.addr))
		if err := h.server.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		h.logger.Info("health server shutting down")
		if err := h.server.Shutdown(shutdownCtx); err != nil {
			h.logger.Error("health server shutdown failed", slog.Any("error", err))
			return err
		}
		h.logger.Info("health server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("health server failed", slog.Any("error", err))
		}
		return err
	}
}

// SetReady sets the readiness reported by /health/ready.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, r *http.Request) {
	if h.isReady.Load() {
		h.writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	h.writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

func (h *HealthServer) handleSLO(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	names := make([]string, 0, len(h.jobs))
	for name := range h.jobs {
		names = append(names, name)
	}
	sort.Strings(names)

	now := h.now()
	resp := sloResponse{Status: "ok", Jobs: make([]jobStatus, 0, len(names))}
	for _, name := range names {
		r := h.jobs[name]
		js := jobStatus{Job: name, SuccessRatio: r.SuccessRatio(), Fresh: r.Fresh(now)}
		if !js.Fresh {
			resp.Status = "stale"
		}
		resp.Jobs = append(resp.Jobs, js)
	}
	h.mu.RUnlock()

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, resp)
}

func (h *HealthServer) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode health response", slog.Any("error", err))
	}
}
