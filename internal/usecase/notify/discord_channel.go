package notify

import "deltawatch/internal/infra/notifier"

// NewDiscordChannel returns the "discord" channel backed by a webhook.
func NewDiscordChannel(config notifier.DiscordConfig) Channel {
	var n notifier.Notifier
	if config.Enabled {
		n = notifier.NewDiscordNotifier(config)
	}
	return newNotifierChannel("discord", config.Enabled, n)
}
