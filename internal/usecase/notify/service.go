package notify

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/observability/logging"
)

const (
	circuitBreakerThreshold = 5
	circuitBreakerTimeout   = 5 * time.Minute
	workerPoolTimeout       = 5 * time.Second
	notificationTimeout     = 30 * time.Second
)

// Service dispatches batches to notification channels.
type Service interface {
	// Notify delivers batch to every enabled channel concurrently and waits
	// for all of them. It returns *entity.NotificationError naming each
	// channel that did not deliver, or nil when all enabled channels did.
	Notify(ctx context.Context, batch entity.NotificationBatch) error

	// EnabledChannels returns the number of enabled channels.
	EnabledChannels() int

	// GetChannelHealth returns the breaker state of every channel.
	GetChannelHealth() []ChannelHealthStatus
}

// ChannelHealthStatus is the health of one channel.
type ChannelHealthStatus struct {
	Name                string     `json:"name"`
	Enabled             bool       `json:"enabled"`
	CircuitBreakerOpen  bool       `json:"circuit_breaker_open"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	DisabledUntil       *time.Time `json:"disabled_until,omitempty"`
}

// Options tunes a Service. Zero fields take the package defaults.
type Options struct {
	MaxConcurrent       int
	NotificationTimeout time.Duration
	BreakerThreshold    int
	BreakerTimeout      time.Duration
	Logger              *slog.Logger
}

type service struct {
	channels      []Channel
	opts          Options
	channelHealth map[string]*channelHealth
	now           func() time.Time
}

type channelHealth struct {
	mu                  sync.Mutex
	consecutiveFailures int
	disabledUntil       time.Time
}

// NewService returns a Service over channels. maxConcurrent bounds the
// number of deliveries in flight.
func NewService(channels []Channel, maxConcurrent int) Service {
	return NewServiceWithOptions(channels, Options{MaxConcurrent: maxConcurrent})
}

// NewServiceWithOptions returns a Service with explicit tuning.
func NewServiceWithOptions(channels []Channel, opts Options) Service {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = len(channels)
		if opts.MaxConcurrent == 0 {
			opts.MaxConcurrent = 1
		}
	}
	if opts.NotificationTimeout <= 0 {
		opts.NotificationTimeout = notificationTimeout
	}
	if opts.BreakerThreshold <= 0 {
		opts.BreakerThreshold = circuitBreakerThreshold
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = circuitBreakerTimeout
	}

	svc := &service{
		channels:      channels,
		opts:          opts,
		channelHealth: make(map[string]*channelHealth, len(channels)),
		now:           time.Now,
	}
	for _, ch := range channels {
		svc.channelHealth[ch.Name()] = &channelHealth{}
	}
	SetChannelsEnabled(svc.EnabledChannels())
	return svc
}

func (s *service) EnabledChannels() int {
	n := 0
	for _, ch := range s.channels {
		if ch.IsEnabled() {
			n++
		}
	}
	return n
}

// Notify implements Service.Notify.
func (s *service) Notify(ctx context.Context, batch entity.NotificationBatch) error {
	if batch.Len() == 0 {
		return ErrEmptyBatch
	}

	logger := s.logger(ctx).With(slog.String("request_id", uuid.New().String()))
	enabled := s.EnabledChannels()
	if enabled == 0 {
		logger.Warn("No notification channels enabled, batch not delivered",
			slog.Int("items", batch.Len()))
		return nil
	}

	logger.Info("Dispatching notification batch",
		slog.Int("items", batch.Len()),
		slog.Int("enabled_channels", enabled))

	var (
		mu       sync.Mutex
		failures []entity.ChannelFailure
	)
	sem := make(chan struct{}, s.opts.MaxConcurrent)

	var g errgroup.Group
	for _, ch := range s.channels {
		if !ch.IsEnabled() {
			continue
		}
		ch := ch
		g.Go(func() error {
			if err := s.notifyChannel(ctx, logger, sem, ch, batch); err != nil {
				mu.Lock()
				failures = append(failures, entity.ChannelFailure{Channel: ch.Name(), Err: err})
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(failures) == 0 {
		return nil
	}
	// Deterministic order for callers and logs.
	ordered := make([]entity.ChannelFailure, 0, len(failures))
	for _, ch := range s.channels {
		for _, f := range failures {
			if f.Channel == ch.Name() {
				ordered = append(ordered, f)
			}
		}
	}
	return &entity.NotificationError{Failures: ordered}
}

// notifyChannel delivers to one channel and updates its breaker.
func (s *service) notifyChannel(ctx context.Context, logger *slog.Logger, sem chan struct{}, ch Channel, batch entity.NotificationBatch) (err error) {
	name := ch.Name()
	logger = logger.With(slog.String("channel", name))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic in notification channel",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("channel %s panicked: %v", name, r)
		}
	}()

	select {
	case sem <- struct{}{}:
		defer func() { <-sem }()
	case <-time.After(workerPoolTimeout):
		logger.Warn("Notification dropped: worker pool full")
		RecordDropped(name, "pool_full")
		return ErrNotificationDropped
	case <-ctx.Done():
		return ctx.Err()
	}

	health := s.channelHealth[name]
	health.mu.Lock()
	if s.now().Before(health.disabledUntil) {
		until := health.disabledUntil
		health.mu.Unlock()
		logger.Warn("Channel temporarily disabled by circuit breaker",
			slog.Time("disabled_until", until))
		RecordDropped(name, "circuit_open")
		return ErrCircuitBreakerOpen
	}
	health.mu.Unlock()

	activeNotifications.Inc()
	defer activeNotifications.Dec()

	sendCtx, cancel := context.WithTimeout(ctx, s.opts.NotificationTimeout)
	defer cancel()

	start := time.Now()
	RecordDispatch(name)
	err = ch.Send(sendCtx, batch)
	duration := time.Since(start)

	s.recordResult(logger, name, health, err)

	if err != nil {
		RecordFailure(name, duration)
		logger.Warn("Channel notification failed",
			slog.Duration("send_duration", duration),
			logging.Err(err))
		return err
	}
	RecordSuccess(name, duration, batch.Len())
	logger.Info("Channel notification sent",
		slog.Int("items", batch.Len()),
		slog.Duration("send_duration", duration))
	return nil
}

func (s *service) recordResult(logger *slog.Logger, name string, health *channelHealth, err error) {
	health.mu.Lock()
	defer health.mu.Unlock()

	if err == nil {
		health.consecutiveFailures = 0
		return
	}
	health.consecutiveFailures++
	if health.consecutiveFailures >= s.opts.BreakerThreshold {
		health.disabledUntil = s.now().Add(s.opts.BreakerTimeout)
		logger.Error("Circuit breaker opened for channel",
			slog.Int("consecutive_failures", health.consecutiveFailures),
			slog.Time("disabled_until", health.disabledUntil))
		RecordCircuitBreakerOpen(name)
	}
}

// GetChannelHealth implements Service.GetChannelHealth.
func (s *service) GetChannelHealth() []ChannelHealthStatus {
	now := s.now()
	statuses := make([]ChannelHealthStatus, 0, len(s.channels))
	for _, ch := range s.channels {
		health := s.channelHealth[ch.Name()]

		health.mu.Lock()
		status := ChannelHealthStatus{
			Name:                ch.Name(),
			Enabled:             ch.IsEnabled(),
			ConsecutiveFailures: health.consecutiveFailures,
		}
		if now.Before(health.disabledUntil) {
			until := health.disabledUntil
			status.CircuitBreakerOpen = true
			status.DisabledUntil = &until
		}
		health.mu.Unlock()

		statuses = append(statuses, status)
	}
	return statuses
}

func (s *service) logger(ctx context.Context) *slog.Logger {
	if s.opts.Logger != nil {
		return s.opts.Logger
	}
	return logging.FromContext(ctx)
}
