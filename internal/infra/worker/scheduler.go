package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"deltawatch/internal/observability/logging"
)

// RunFunc performs one run of a job and reports how many new items it found.
type RunFunc func(ctx context.Context) (newItems int, err error)

// Observer receives the outcome of every finished run.
type Observer interface {
	Observe(success bool, at time.Time)
}

// Scheduler starts registered jobs on the configured cron schedule.
// A job whose previous run is still in progress is skipped for that tick.
type Scheduler struct {
	cron    *cron.Cron
	cfg     WorkerConfig
	metrics *WorkerMetrics
	logger  *slog.Logger

	mu   sync.Mutex
	jobs []*scheduledJob
	wg   sync.WaitGroup
	base context.Context
	stop context.CancelFunc
}

type scheduledJob struct {
	name     string
	run      RunFunc
	observer Observer
	running  atomic.Bool
}

// NewScheduler creates a scheduler evaluating cfg.CronSchedule in cfg.Timezone.
func NewScheduler(cfg WorkerConfig, metrics *WorkerMetrics, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Timezone, err)
	}
	base, stop := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
		base:    base,
		stop:    stop,
	}, nil
}

// Add registers a job. observer may be nil.
func (s *Scheduler) Add(name string, run RunFunc, observer Observer) error {
	job := &scheduledJob{name: name, run: run, observer: observer}
	if _, err := s.cron.AddFunc(s.cfg.CronSchedule, func() { s.trigger(job) }); err != nil {
		return fmt.Errorf("add job %s: %w", name, err)
	}
	s.mu.Lock()
	s.jobs = append(s.jobs, job)
	s.mu.Unlock()
	return nil
}

// Start starts the cron loop and, with RunOnStart, triggers every job once.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started",
		slog.String("schedule", s.cfg.CronSchedule),
		slog.String("timezone", s.cfg.Timezone))

	if !s.cfg.RunOnStart {
		return
	}
	s.mu.Lock()
	jobs := append([]*scheduledJob(nil), s.jobs...)
	s.mu.Unlock()
	for _, job := range jobs {
		go s.trigger(job)
	}
}

// Stop stops scheduling, cancels runs in progress and waits for them to
// return or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.stop()
	cronDone := s.cron.Stop().Done()

	done := make(chan struct{})
	go func() {
		<-cronDone
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow runs job synchronously, honoring the skip-if-running rule.
// It reports whether the job ran.
func (s *Scheduler) RunNow(name string) bool {
	s.mu.Lock()
	var job *scheduledJob
	for _, j := range s.jobs {
		if j.name == name {
			job = j
			break
		}
	}
	s.mu.Unlock()
	if job == nil {
		return false
	}
	return s.trigger(job)
}

func (s *Scheduler) trigger(job *scheduledJob) bool {
	if !job.running.CompareAndSwap(false, true) {
		s.logger.Warn("previous run still in progress, skipping", slog.String("job", job.name))
		if s.metrics != nil {
			s.metrics.RecordJobRun(job.name, "skipped")
		}
		return false
	}
	s.wg.Add(1)
	defer func() {
		job.running.Store(false)
		s.wg.Done()
	}()

	start := time.Now()
	newItems, err := s.safeRun(job)
	duration := time.Since(start)

	status := "success"
	if err != nil {
		status = "failure"
		s.logger.Error("scheduled run failed",
			slog.String("job", job.name),
			slog.Duration("duration", duration),
			logging.Err(err))
	} else {
		s.logger.Info("scheduled run completed",
			slog.String("job", job.name),
			slog.Int("new_items", newItems),
			slog.Duration("duration", duration))
	}

	if s.metrics != nil {
		s.metrics.RecordJobRun(job.name, status)
		s.metrics.RecordJobDuration(job.name, duration)
		if err == nil {
			s.metrics.RecordNewItems(job.name, newItems)
			s.metrics.RecordLastSuccess(job.name)
		}
	}
	if job.observer != nil {
		job.observer.Observe(err == nil, time.Now())
	}
	return true
}

func (s *Scheduler) safeRun(job *scheduledJob) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in job %s: %v", job.name, r)
		}
	}()
	return job.run(s.base)
}
