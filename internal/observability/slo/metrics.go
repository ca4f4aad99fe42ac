// Package slo tracks service level indicators for scheduled runs.
package slo

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SLO targets for the scheduled worker.
const (
	// RunSuccessSLO is the target ratio of successful runs over the window
	RunSuccessSLO = 0.95

	// FreshnessSLO is the longest acceptable gap since the last successful run
	FreshnessSLO = 2 * time.Hour

	// DefaultWindow is the number of recent runs the ratio is computed over
	DefaultWindow = 48
)

// SLO tracking metrics, updated after every run by Tracker.
var (
	// SLORunSuccess tracks the success ratio (0-1) over the recent window
	SLORunSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slo_run_success_ratio",
			Help: "Ratio of successful runs over the recent window, target: 0.95",
		},
		[]string{"job"},
	)

	// SLOLastSuccess is the Unix time of the last successful run
	SLOLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slo_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful run",
		},
		[]string{"job"},
	)
)

// Tracker keeps the outcome of the last Window runs of one job.
type Tracker struct {
	job    string
	window int

	mu          sync.Mutex
	outcomes    []bool
	next        int
	lastSuccess time.Time
}

// NewTracker creates a tracker for job. A window below 1 uses DefaultWindow.
func NewTracker(job string, window int) *Tracker {
	if window < 1 {
		window = DefaultWindow
	}
	return &Tracker{job: job, window: window}
}

// Observe records a run outcome and refreshes the gauges.
func (t *Tracker) Observe(success bool, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.outcomes) < t.window {
		t.outcomes = append(t.outcomes, success)
	} else {
		t.outcomes[t.next] = success
		t.next = (t.next + 1) % t.window
	}
	if success {
		t.lastSuccess = at
		SLOLastSuccess.WithLabelValues(t.job).Set(float64(at.Unix()))
	}
	SLORunSuccess.WithLabelValues(t.job).Set(t.ratioLocked())
}

// SuccessRatio returns the success ratio over the window, or 1 with no runs.
func (t *Tracker) SuccessRatio() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ratioLocked()
}

func (t *Tracker) ratioLocked() float64 {
	if len(t.outcomes) == 0 {
		return 1
	}
	ok := 0
	for _, o := range t.outcomes {
		if o {
			ok++
		}
	}
	return float64(ok) / float64(len(t.outcomes))
}

// Fresh reports whether a run succeeded within FreshnessSLO of now.
// A tracker that has never seen a success is not fresh.
func (t *Tracker) Fresh(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.lastSuccess.IsZero() && now.Sub(t.lastSuccess) <= FreshnessSLO
}
