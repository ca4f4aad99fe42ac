package notifier

import (
	"fmt"
	"strings"

	"deltawatch/internal/domain/entity"
)

const bodyHeader = "The following new items were found:\n\n"

// RenderPlainText renders the batch as the plain text message body.
// The output depends only on the batch: a header line, then the title and
// id of every item in batch order, each entry followed by a blank line.
func RenderPlainText(batch entity.NotificationBatch) string {
	var b strings.Builder
	b.WriteString(bodyHeader)
	for _, item := range batch.Items {
		b.WriteString(item.Title)
		b.WriteByte('\n')
		b.WriteString(item.ID)
		b.WriteString("\n\n")
	}
	return b.String()
}

// DefaultSubject returns "[deltawatch] N new item(s) found".
func DefaultSubject(batch entity.NotificationBatch) string {
	return fmt.Sprintf("[deltawatch] %d new item(s) found", batch.Len())
}

// summaryLine is the one-line fallback text used by chat webhooks.
func summaryLine(batch entity.NotificationBatch) string {
	if batch.Len() == 1 {
		return "1 new item found"
	}
	return fmt.Sprintf("%d new items found", batch.Len())
}

// displayTitle falls back to the id for items without a title.
func displayTitle(item entity.Item) string {
	if t := strings.TrimSpace(item.Title); t != "" {
		return t
	}
	return item.ID
}

// isLink reports whether the id can be rendered as a hyperlink.
func isLink(id string) bool {
	return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
}
