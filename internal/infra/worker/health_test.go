package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type fakeSLO struct {
	ratio float64
	fresh bool
}

func (f fakeSLO) SuccessRatio() float64 { return f.ratio }
func (f fakeSLO) Fresh(time.Time) bool  { return f.fresh }

func newTestHealthServer() *HealthServer {
	return NewHealthServer("127.0.0.1:0", slog.New(slog.DiscardHandler))
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthServer_Liveness(t *testing.T) {
	rec := get(t, newTestHealthServer().Handler(), "/health")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status field = %q, want ok", resp.Status)
	}
}

func TestHealthServer_Readiness(t *testing.T) {
	server := newTestHealthServer()
	handler := server.Handler()

	if rec := get(t, handler, "/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("before SetReady: status = %d, want 503", rec.Code)
	}

	server.SetReady(true)
	if rec := get(t, handler, "/health/ready"); rec.Code != http.StatusOK {
		t.Errorf("after SetReady(true): status = %d, want 200", rec.Code)
	}

	server.SetReady(false)
	if rec := get(t, handler, "/health/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Errorf("after SetReady(false): status = %d, want 503", rec.Code)
	}
}

func TestHealthServer_SLO(t *testing.T) {
	server := newTestHealthServer()
	server.Track("listings", fakeSLO{ratio: 1, fresh: true})
	server.Track("contributors", fakeSLO{ratio: 0.5, fresh: true})

	rec := get(t, server.Handler(), "/health/slo")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp sloResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Jobs) != 2 || resp.Jobs[0].Job != "contributors" || resp.Jobs[1].Job != "listings" {
		t.Fatalf("jobs = %+v, want contributors then listings", resp.Jobs)
	}
	if resp.Jobs[0].SuccessRatio != 0.5 {
		t.Errorf("ratio = %v, want 0.5", resp.Jobs[0].SuccessRatio)
	}

	server.Track("listings", fakeSLO{ratio: 1, fresh: false})
	rec = get(t, server.Handler(), "/health/slo")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("stale job: status = %d, want 503", rec.Code)
	}
}

func TestHealthServer_GracefulShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	server := NewHealthServer(addr, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- server.Start(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(fmt.Sprintf("http://%s/health", addr))
		if err == nil {
			_ = resp.Body.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not start: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			t.Errorf("Start returned %v, want http.ErrServerClosed", err)
		}
	case <-time.After(6 * time.Second):
		t.Fatal("server did not shut down")
	}
}
