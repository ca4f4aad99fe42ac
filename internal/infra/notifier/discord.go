package notifier

import (
	"context"
	"fmt"
	"time"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/utils/text"
)

// DiscordConfig configures the Discord webhook channel.
type DiscordConfig struct {
	Enabled bool

	// WebhookURL includes the authentication token; never log it.
	WebhookURL string

	Timeout time.Duration
}

// DiscordNotifier posts a batch as one message with one embed per item.
type DiscordNotifier struct {
	config  DiscordConfig
	webhook *webhook
}

// NewDiscordNotifier returns a notifier limited to 30 requests per minute
// with a burst of 3.
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		config:  config,
		webhook: newWebhook("discord", config.WebhookURL, config.Timeout, NewRateLimiter(0.5, 3)),
	}
}

// DiscordWebhookPayload is the JSON body sent to the webhook.
type DiscordWebhookPayload struct {
	Content string         `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds"`
}

// DiscordEmbed is one rich embed.
type DiscordEmbed struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	URL         string `json:"url,omitempty"`
	Color       int    `json:"color"`
}

const (
	maxTitleLength       = 256
	maxDescriptionLength = 4096
	maxDiscordEmbeds     = 10
	truncationSuffix     = "..."

	// #5865F2
	discordBlueColor = 5793266
)

func (d *DiscordNotifier) buildEmbedPayload(batch entity.NotificationBatch) DiscordWebhookPayload {
	content := summaryLine(batch)
	items := batch.Items
	if len(items) > maxDiscordEmbeds {
		content = fmt.Sprintf("%s (showing the first %d)", content, maxDiscordEmbeds)
		items = items[:maxDiscordEmbeds]
	}

	embeds := make([]DiscordEmbed, 0, len(items))
	for _, item := range items {
		embed := DiscordEmbed{
			Title:       text.Truncate(displayTitle(item), maxTitleLength, truncationSuffix),
			Description: text.Truncate(item.ID, maxDescriptionLength, truncationSuffix),
			Color:       discordBlueColor,
		}
		if isLink(item.ID) {
			embed.URL = item.ID
		}
		embeds = append(embeds, embed)
	}

	return DiscordWebhookPayload{Content: content, Embeds: embeds}
}

// NotifyBatch implements Notifier.
func (d *DiscordNotifier) NotifyBatch(ctx context.Context, batch entity.NotificationBatch) error {
	return d.webhook.send(ctx, d.buildEmbedPayload(batch), batch.Len())
}
