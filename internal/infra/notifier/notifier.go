// Package notifier delivers notification batches over concrete transports:
// SMTP email, Slack and Discord webhooks, and a no-op sink for disabled
// channels. Every transport renders the same batch; RenderPlainText is the
// canonical, deterministic form.
package notifier

import (
	"context"

	"deltawatch/internal/domain/entity"
)

// Notifier sends one notification describing every item of a batch.
// Implementations apply their own rate limiting and retries and must
// respect context cancellation.
type Notifier interface {
	NotifyBatch(ctx context.Context, batch entity.NotificationBatch) error
}
