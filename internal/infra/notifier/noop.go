package notifier

import (
	"context"

	"deltawatch/internal/domain/entity"
)

// NoOpNotifier discards every batch. It stands in for disabled channels.
type NoOpNotifier struct{}

// NewNoOpNotifier returns a NoOpNotifier.
func NewNoOpNotifier() *NoOpNotifier {
	return &NoOpNotifier{}
}

// NotifyBatch returns nil without doing anything.
func (n *NoOpNotifier) NotifyBatch(context.Context, entity.NotificationBatch) error {
	return nil
}
