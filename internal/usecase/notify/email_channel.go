package notify

import (
	"fmt"

	"deltawatch/internal/infra/notifier"
)

// NewEmailChannel returns the "email" channel. It fails when the channel is
// enabled but the SMTP client cannot be configured.
func NewEmailChannel(config notifier.EmailConfig) (Channel, error) {
	if !config.Enabled {
		return newNotifierChannel("email", false, nil), nil
	}
	n, err := notifier.NewEmailNotifier(config)
	if err != nil {
		return nil, fmt.Errorf("email channel: %w", err)
	}
	return newNotifierChannel("email", true, n), nil
}

// NewChannel wraps any notifier as a named channel.
func NewChannel(name string, enabled bool, n notifier.Notifier) Channel {
	return newNotifierChannel(name, enabled, n)
}
