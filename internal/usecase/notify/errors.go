package notify

import "errors"

// Sentinel errors for notify use case operations.
var (
	// ErrChannelDisabled is returned by Send on a disabled channel.
	ErrChannelDisabled = errors.New("channel is disabled")

	// ErrEmptyBatch is returned when Notify is called with an empty batch.
	ErrEmptyBatch = errors.New("notification batch is empty")

	// ErrCircuitBreakerOpen is recorded for a channel skipped after too
	// many consecutive failures.
	ErrCircuitBreakerOpen = errors.New("circuit breaker is open for this channel")

	// ErrNotificationDropped is recorded for a channel that could not get a
	// worker slot before its deadline.
	ErrNotificationDropped = errors.New("notification dropped: no worker available")
)
