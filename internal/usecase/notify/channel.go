// Package notify dispatches notification batches to every enabled delivery
// channel (email, Slack, Discord) and tracks the health of each channel.
package notify

import (
	"context"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/infra/notifier"
)

// Channel is one notification delivery channel.
// Implementations must be safe for concurrent use and respect ctx.
type Channel interface {
	// Name is the lowercase identifier used in logs, metrics and health output.
	Name() string

	// IsEnabled reports whether the channel should receive batches.
	IsEnabled() bool

	// Send delivers the batch. Channels retry transient failures themselves.
	Send(ctx context.Context, batch entity.NotificationBatch) error
}

// notifierChannel adapts an infra notifier to Channel. A disabled channel
// holds a NoOpNotifier so callers never see a nil notifier.
type notifierChannel struct {
	name     string
	enabled  bool
	notifier notifier.Notifier
}

func newNotifierChannel(name string, enabled bool, n notifier.Notifier) *notifierChannel {
	if !enabled || n == nil {
		n = notifier.NewNoOpNotifier()
	}
	return &notifierChannel{name: name, enabled: enabled, notifier: n}
}

func (c *notifierChannel) Name() string    { return c.name }
func (c *notifierChannel) IsEnabled() bool { return c.enabled }

func (c *notifierChannel) Send(ctx context.Context, batch entity.NotificationBatch) error {
	if !c.enabled {
		return ErrChannelDisabled
	}
	if batch.Len() == 0 {
		return ErrEmptyBatch
	}
	return c.notifier.NotifyBatch(ctx, batch)
}
