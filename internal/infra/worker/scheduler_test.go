package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []bool
}

func (r *recordingObserver) Observe(success bool, _ time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, success)
}

func (r *recordingObserver) get() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.outcomes...)
}

func newTestScheduler(t *testing.T, runOnStart bool) (*Scheduler, *WorkerMetrics) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.CronSchedule = "0 0 1 1 *"
	cfg.RunOnStart = runOnStart
	metrics := newTestMetrics(t)
	s, err := NewScheduler(cfg, metrics, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s, metrics
}

func TestNewScheduler_BadTimezone(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Nowhere/Land"
	_, err := NewScheduler(cfg, nil, nil)
	require.Error(t, err)
}

func TestScheduler_Add_BadSchedule(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "not a schedule"
	s, err := NewScheduler(cfg, nil, nil)
	require.NoError(t, err)
	require.Error(t, s.Add("listings", func(context.Context) (int, error) { return 0, nil }, nil))
}

func TestScheduler_RunNow_RecordsOutcome(t *testing.T) {
	s, metrics := newTestScheduler(t, false)
	observer := &recordingObserver{}

	calls := 0
	require.NoError(t, s.Add("listings", func(context.Context) (int, error) {
		calls++
		if calls == 2 {
			return 0, errors.New("fetch failed")
		}
		return 4, nil
	}, observer))

	assert.True(t, s.RunNow("listings"))
	assert.True(t, s.RunNow("listings"))
	assert.False(t, s.RunNow("unknown"))

	assert.Equal(t, []bool{true, false}, observer.get())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("listings", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("listings", "failure")))
	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.JobNewItemsTotal.WithLabelValues("listings")))
}

func TestScheduler_SkipsOverlappingRun(t *testing.T) {
	s, metrics := newTestScheduler(t, false)

	started := make(chan struct{})
	release := make(chan struct{})
	require.NoError(t, s.Add("listings", func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}, nil))

	done := make(chan bool)
	go func() { done <- s.RunNow("listings") }()
	<-started

	assert.False(t, s.RunNow("listings"), "second run must be skipped")
	close(release)
	assert.True(t, <-done)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("listings", "skipped")))
}

func TestScheduler_PanicIsFailure(t *testing.T) {
	s, metrics := newTestScheduler(t, false)
	observer := &recordingObserver{}
	require.NoError(t, s.Add("listings", func(context.Context) (int, error) {
		panic("boom")
	}, observer))

	assert.True(t, s.RunNow("listings"))
	assert.Equal(t, []bool{false}, observer.get())
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.JobRunsTotal.WithLabelValues("listings", "failure")))
}

func TestScheduler_RunOnStartAndStopCancels(t *testing.T) {
	s, _ := newTestScheduler(t, true)

	started := make(chan struct{})
	require.NoError(t, s.Add("listings", func(ctx context.Context) (int, error) {
		close(started)
		<-ctx.Done()
		return 0, ctx.Err()
	}, nil))

	s.Start()
	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("job did not run on start")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
}

func TestScheduler_StopCancelsCronTriggeredRun(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CronSchedule = "@every 1s"
	cfg.RunOnStart = false
	s, err := NewScheduler(cfg, newTestMetrics(t), slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	started := make(chan struct{}, 1)
	canceled := make(chan struct{}, 1)
	require.NoError(t, s.Add("listings", func(ctx context.Context) (int, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		select {
		case <-ctx.Done():
			canceled <- struct{}{}
			return 0, ctx.Err()
		case <-time.After(10 * time.Second):
			return 0, nil
		}
	}, nil))

	s.Start()
	select {
	case <-started:
	case <-time.After(3 * time.Second):
		t.Fatal("cron did not trigger the job")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	begin := time.Now()
	require.NoError(t, s.Stop(ctx))
	assert.Less(t, time.Since(begin), 2*time.Second)

	select {
	case <-canceled:
	default:
		t.Fatal("run was not canceled")
	}
}

func TestScheduler_StopHonorsDeadline(t *testing.T) {
	s, _ := newTestScheduler(t, true)

	started := make(chan struct{})
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	require.NoError(t, s.Add("listings", func(context.Context) (int, error) {
		close(started)
		<-release
		return 0, nil
	}, nil))

	s.Start()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err := s.Stop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
