package notify

import "deltawatch/internal/infra/notifier"

// NewSlackChannel returns the "slack" channel backed by an Incoming Webhook.
func NewSlackChannel(config notifier.SlackConfig) Channel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewSlackNotifier(config)
	}
	return newNotifierChannel("slack", config.Enabled, n)
}
