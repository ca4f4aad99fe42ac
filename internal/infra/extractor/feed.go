package extractor

import (
	"bytes"
	"strings"

	"deltawatch/internal/domain/entity"

	"github.com/mmcdole/gofeed"
)

// FeedExtractor reads RSS and Atom feeds. The entry link is the id,
// falling back to the GUID; entries with neither are skipped.
type FeedExtractor struct {
	parser *gofeed.Parser
}

// NewFeedExtractor creates a FeedExtractor.
func NewFeedExtractor() *FeedExtractor {
	return &FeedExtractor{parser: gofeed.NewParser()}
}

// Extract implements Extractor.
func (f *FeedExtractor) Extract(payload *entity.Payload) ([]entity.Item, error) {
	if payload == nil {
		return nil, &entity.ExtractionError{Source: "payload", Err: entity.ErrInvalidInput}
	}
	feed, err := f.parser.Parse(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, &entity.ExtractionError{Source: sourceOf(payload), Err: err}
	}

	items := make([]entity.Item, 0, len(feed.Items))
	for _, it := range feed.Items {
		id := strings.TrimSpace(it.Link)
		if id == "" {
			id = strings.TrimSpace(it.GUID)
		}
		if id == "" {
			continue
		}
		items = append(items, entity.Item{ID: id, Title: strings.TrimSpace(it.Title)})
	}
	return dedupe(items), nil
}
