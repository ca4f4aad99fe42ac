// Package extractor turns fetched payloads into items.
//
// Every extractor is a pure function of its payload: it performs no I/O and
// reports malformed input as *entity.ExtractionError. Item order follows the
// payload and duplicate ids inside one payload collapse to the first.
package extractor

import (
	"fmt"

	"deltawatch/internal/domain/entity"
)

// Extractor derives items from one payload.
type Extractor interface {
	Extract(payload *entity.Payload) ([]entity.Item, error)
}

// NewForTarget returns the extractor for the target's kind.
// The target must have been validated.
func NewForTarget(target entity.Target) (Extractor, error) {
	switch target.Kind {
	case entity.KindHTML:
		if target.Scraper == nil {
			return nil, fmt.Errorf("%w: html target %q has no scraper config", entity.ErrInvalidInput, target.Name)
		}
		return NewHTMLExtractor(*target.Scraper), nil
	case entity.KindRSS:
		return NewFeedExtractor(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported target kind %q", entity.ErrInvalidInput, target.Kind)
	}
}

// dedupe keeps the first occurrence of every id.
func dedupe(items []entity.Item) []entity.Item {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}

func sourceOf(p *entity.Payload) string {
	if p == nil || p.URL == "" {
		return "payload"
	}
	return p.URL
}
