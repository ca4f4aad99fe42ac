package notify

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/domain/entity"
)

func TestNotify_AllEnabledChannelsReceiveBatch(t *testing.T) {
	// Arrange
	email := &mockChannel{name: "email", enabled: true}
	slack := &mockChannel{name: "slack", enabled: true}
	discord := &mockChannel{name: "discord", enabled: false}
	svc := NewService([]Channel{email, slack, discord}, 2)
	batch := testBatch(t, entity.Item{ID: "C", Title: "y"})

	// Act
	err := svc.Notify(context.Background(), batch)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, 1, email.sendCount())
	assert.Equal(t, 1, slack.sendCount())
	assert.Equal(t, 0, discord.sendCount())
	assert.Equal(t, batch, email.batches[0])
	assert.Equal(t, 2, svc.EnabledChannels())
}

func TestNotify_NoChannelsEnabled(t *testing.T) {
	ch := &mockChannel{name: "email", enabled: false}
	svc := NewService([]Channel{ch}, 1)

	assert.NoError(t, svc.Notify(context.Background(), testBatch(t)))
	assert.Equal(t, 0, ch.sendCount())
}

func TestNotify_EmptyBatch(t *testing.T) {
	svc := NewService([]Channel{&mockChannel{name: "email", enabled: true}}, 1)
	assert.ErrorIs(t, svc.Notify(context.Background(), entity.NotificationBatch{}), ErrEmptyBatch)
}

func TestNotify_FailureReportsEveryFailedChannel(t *testing.T) {
	smtpErr := errors.New("535 authentication failed")
	hookErr := errors.New("webhook down")
	email := &mockChannel{name: "email", enabled: true, sendError: smtpErr}
	slack := &mockChannel{name: "slack", enabled: true}
	discord := &mockChannel{name: "discord", enabled: true, sendError: hookErr}
	svc := NewService([]Channel{email, slack, discord}, 3)

	err := svc.Notify(context.Background(), testBatch(t))

	var notifyErr *entity.NotificationError
	require.ErrorAs(t, err, &notifyErr)
	require.Len(t, notifyErr.Failures, 2)
	assert.Equal(t, "email", notifyErr.Failures[0].Channel)
	assert.Equal(t, "discord", notifyErr.Failures[1].Channel)
	assert.ErrorIs(t, err, smtpErr)
	assert.ErrorIs(t, err, hookErr)
	assert.Equal(t, 1, slack.sendCount())
}

func TestNotify_ChannelsRunConcurrently(t *testing.T) {
	a := &mockChannel{name: "a", enabled: true, sendDelay: 100 * time.Millisecond}
	b := &mockChannel{name: "b", enabled: true, sendDelay: 100 * time.Millisecond}
	svc := NewService([]Channel{a, b}, 2)

	start := time.Now()
	require.NoError(t, svc.Notify(context.Background(), testBatch(t)))
	assert.Less(t, time.Since(start), 190*time.Millisecond)
}

func TestNotify_PanicIsReportedAsFailure(t *testing.T) {
	bad := &mockChannel{name: "bad", enabled: true, panicOnSend: true}
	good := &mockChannel{name: "good", enabled: true}
	svc := NewService([]Channel{bad, good}, 2)

	err := svc.Notify(context.Background(), testBatch(t))

	var notifyErr *entity.NotificationError
	require.ErrorAs(t, err, &notifyErr)
	require.Len(t, notifyErr.Failures, 1)
	assert.Equal(t, "bad", notifyErr.Failures[0].Channel)
	assert.Equal(t, 1, good.sendCount())
}

func TestNotify_PerChannelTimeout(t *testing.T) {
	slow := &mockChannel{name: "slow", enabled: true, sendDelay: time.Second}
	svc := NewServiceWithOptions([]Channel{slow}, Options{NotificationTimeout: 20 * time.Millisecond})

	err := svc.Notify(context.Background(), testBatch(t))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCircuitBreaker_OpensAfterThresholdAndRecovers(t *testing.T) {
	// Arrange
	ch := &mockChannel{name: "email", enabled: true, sendError: errors.New("down")}
	svc := NewServiceWithOptions([]Channel{ch}, Options{BreakerThreshold: 3, BreakerTimeout: time.Minute}).(*service)
	var clock atomic.Int64
	clock.Store(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).UnixNano())
	svc.now = func() time.Time { return time.Unix(0, clock.Load()) }

	// Act: three failures open the breaker
	for i := 0; i < 3; i++ {
		require.Error(t, svc.Notify(context.Background(), testBatch(t)))
	}
	health := svc.GetChannelHealth()
	require.Len(t, health, 1)
	assert.True(t, health[0].CircuitBreakerOpen)
	assert.Equal(t, 3, health[0].ConsecutiveFailures)
	require.NotNil(t, health[0].DisabledUntil)

	// Skipped while open
	err := svc.Notify(context.Background(), testBatch(t))
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	assert.Equal(t, 3, ch.sendCount())

	// After the timeout it is tried again and a success resets it
	clock.Add(int64(2 * time.Minute))
	ch.setError(nil)
	require.NoError(t, svc.Notify(context.Background(), testBatch(t)))
	assert.Equal(t, 4, ch.sendCount())

	health = svc.GetChannelHealth()
	assert.False(t, health[0].CircuitBreakerOpen)
	assert.Equal(t, 0, health[0].ConsecutiveFailures)
	assert.Nil(t, health[0].DisabledUntil)
}

func TestGetChannelHealth_ListsEveryChannel(t *testing.T) {
	svc := NewService([]Channel{
		&mockChannel{name: "email", enabled: true},
		&mockChannel{name: "slack", enabled: false},
	}, 1)

	health := svc.GetChannelHealth()
	require.Len(t, health, 2)
	assert.Equal(t, ChannelHealthStatus{Name: "email", Enabled: true}, health[0])
	assert.Equal(t, ChannelHealthStatus{Name: "slack", Enabled: false}, health[1])
}
