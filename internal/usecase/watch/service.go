package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/logging"
	"deltawatch/internal/observability/metrics"
	"deltawatch/internal/observability/tracing"
	"deltawatch/internal/repository"
)

// Notifier delivers a batch of new items.
type Notifier interface {
	Notify(ctx context.Context, batch entity.NotificationBatch) error
}

// Config tunes a Service.
type Config struct {
	// Job labels logs and metrics, e.g. "listings" or "contributors".
	Job string

	// RunTimeout bounds a whole run; zero means no deadline beyond ctx.
	RunTimeout time.Duration

	// NotifyFailureFatal fails the run without saving when notification
	// fails. By default the failure is logged and the set is still saved.
	NotifyFailureFatal bool
}

// Service runs one job: Load, collect, diff, notify, Save.
// It assumes it is the only writer of its store.
type Service struct {
	collector Collector
	store     repository.ChangeStore
	notifier  Notifier
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewService wires a Service. logger may be nil.
func NewService(collector Collector, store repository.ChangeStore, notifier Notifier, cfg Config, logger *slog.Logger) (*Service, error) {
	if collector == nil || store == nil || notifier == nil {
		return nil, fmt.Errorf("%w: collector, store and notifier are required", ErrMissingDependency)
	}
	if cfg.Job == "" {
		cfg.Job = "default"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		collector: collector,
		store:     store,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Job returns the job name.
func (s *Service) Job() string {
	return s.cfg.Job
}

// run carries the mutable state of one Run call.
type run struct {
	ctx    context.Context
	logger *slog.Logger
	state  State
	result *RunResult
}

func (r *run) enter(state State) {
	r.state = state
	r.logger.Debug("Run state", slog.String("state", string(state)))
}

// Run executes one run. It always returns a result; the error is a
// *RunError when the run failed.
func (s *Service) Run(ctx context.Context) (*RunResult, error) {
	start := s.now()
	runID := uuid.New().String()

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	ctx, span := tracing.GetTracer().Start(ctx, "watch.run")
	defer span.End()
	span.SetAttributes(
		attribute.String("job", s.cfg.Job),
		attribute.String("run_id", runID))

	ctx = logging.ContextWithRunID(ctx, runID)
	logger := logging.WithRunID(ctx, s.logger).With(slog.String("job", s.cfg.Job))
	ctx = logging.WithLogger(ctx, logger)

	r := &run{
		ctx:    ctx,
		logger: logger,
		state:  StateIdle,
		result: &RunResult{RunID: runID, Job: s.cfg.Job},
	}

	err := s.execute(r)

	r.result.Duration = s.now().Sub(start)
	if err != nil {
		r.result.State = StateFailed
		var runErr *RunError
		if errors.As(err, &runErr) {
			metrics.RecordRunFailure(s.cfg.Job, string(runErr.Reason))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("Run failed",
			logging.Err(err),
			slog.Duration("duration", r.result.Duration))
	} else {
		r.result.State = StateDone
		logger.Info("Run completed",
			slog.Int("extracted", r.result.Extracted),
			slog.Int("new_items", len(r.result.NewItems)),
			slog.Int("known", r.result.Known),
			slog.Bool("nothing_new", r.result.NothingNew),
			slog.Bool("notified", r.result.Notified),
			slog.Duration("duration", r.result.Duration))
	}
	span.SetAttributes(
		attribute.String("state", string(r.result.State)),
		attribute.Int("new_items", len(r.result.NewItems)))
	metrics.RecordRun(s.cfg.Job, string(r.result.State), r.result.Duration, len(r.result.NewItems))

	return r.result, err
}

func (s *Service) execute(r *run) error {
	ctx := r.ctx

	known, err := s.store.Load(ctx)
	if err != nil {
		reason := ReasonStoreUnreadable
		if ctx.Err() != nil {
			reason = ctxReason(ctx.Err())
		}
		return &RunError{Reason: reason, State: r.state, Err: err}
	}
	r.logger.Info("Run started", slog.Int("known", known.Len()))

	items, err := s.collector.Collect(ctx, r.enter)
	if err != nil {
		return &RunError{Reason: reasonFor(ctx, err), State: r.state, Err: err}
	}
	r.result.Extracted = len(items)

	r.enter(StateDiffing)
	fresh := Diff(known, items)
	r.result.Known = known.Len()
	metrics.UpdateKnownItems(s.cfg.Job, known.Len())

	if len(fresh) == 0 {
		r.result.NothingNew = true
		r.logger.Info("Nothing new", slog.Int("extracted", len(items)))
		return nil
	}
	r.result.NewItems = fresh

	r.enter(StateNotifying)
	batch, err := entity.NewNotificationBatch(fresh)
	if err != nil {
		return &RunError{Reason: ReasonNotify, State: r.state, Err: err}
	}
	if err := s.notifier.Notify(ctx, batch); err != nil {
		r.result.NotifyErr = err
		if s.cfg.NotifyFailureFatal {
			return &RunError{Reason: ReasonNotify, State: r.state, Err: err}
		}
		r.logger.Warn("Notification failed, saving known items anyway",
			slog.Int("new_items", len(fresh)),
			logging.Err(err))
	} else {
		r.result.Notified = true
	}

	r.enter(StatePersisting)
	if err := ctx.Err(); err != nil {
		return &RunError{Reason: ctxReason(err), State: r.state, Err: err}
	}
	if err := s.store.Save(ctx, known); err != nil {
		return &RunError{Reason: ReasonPersist, State: r.state, Err: err}
	}
	return nil
}
