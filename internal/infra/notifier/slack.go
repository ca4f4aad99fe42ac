package notifier

import (
	"context"
	"fmt"
	"time"

	"deltawatch/internal/domain/entity"
	"deltawatch/internal/utils/text"
)

// SlackConfig configures the Slack Incoming Webhook channel.
type SlackConfig struct {
	Enabled bool

	// WebhookURL includes the authentication token; never log it.
	WebhookURL string

	Timeout time.Duration
}

// SlackNotifier posts a batch as one Block Kit message.
type SlackNotifier struct {
	config  SlackConfig
	webhook *webhook
}

// NewSlackNotifier returns a notifier limited to 1 message per second,
// the Incoming Webhook limit.
func NewSlackNotifier(config SlackConfig) *SlackNotifier {
	return &SlackNotifier{
		config:  config,
		webhook: newWebhook("slack", config.WebhookURL, config.Timeout, NewRateLimiter(1.0, 1)),
	}
}

// SlackWebhookPayload is the JSON body sent to the webhook.
type SlackWebhookPayload struct {
	Text   string       `json:"text"`
	Blocks []SlackBlock `json:"blocks"`
}

// SlackBlock is a Block Kit block.
type SlackBlock struct {
	Type     string            `json:"type"`
	Text     *SlackTextObject  `json:"text,omitempty"`
	Elements []SlackTextObject `json:"elements,omitempty"`
}

// SlackTextObject is a Block Kit text object.
type SlackTextObject struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

const (
	maxSectionTextLength = 3000
	maxSlackBlocks       = 50

	// header and overflow context take two blocks
	maxSlackItemBlocks = maxSlackBlocks - 2

	slackTruncationSuffix = "..."
)

// buildBlockKitPayload renders a header section, one section per item and,
// when the batch exceeds the block limit, a context block with the rest count.
func (s *SlackNotifier) buildBlockKitPayload(batch entity.NotificationBatch) SlackWebhookPayload {
	summary := summaryLine(batch)
	blocks := []SlackBlock{{
		Type: "section",
		Text: &SlackTextObject{Type: "mrkdwn", Text: "*" + summary + "*"},
	}}

	items := batch.Items
	var overflow int
	if len(items) > maxSlackItemBlocks {
		overflow = len(items) - maxSlackItemBlocks
		items = items[:maxSlackItemBlocks]
	}

	for _, item := range items {
		var body string
		if isLink(item.ID) {
			body = fmt.Sprintf("*<%s|%s>*", item.ID, displayTitle(item))
		} else {
			body = fmt.Sprintf("*%s*\n%s", displayTitle(item), item.ID)
		}
		blocks = append(blocks, SlackBlock{
			Type: "section",
			Text: &SlackTextObject{
				Type: "mrkdwn",
				Text: text.Truncate(body, maxSectionTextLength, slackTruncationSuffix),
			},
		})
	}

	if overflow > 0 {
		blocks = append(blocks, SlackBlock{
			Type:     "context",
			Elements: []SlackTextObject{{Type: "mrkdwn", Text: fmt.Sprintf("and %d more", overflow)}},
		})
	}

	return SlackWebhookPayload{Text: summary, Blocks: blocks}
}

// NotifyBatch implements Notifier.
func (s *SlackNotifier) NotifyBatch(ctx context.Context, batch entity.NotificationBatch) error {
	return s.webhook.send(ctx, s.buildBlockKitPayload(batch), batch.Len())
}
