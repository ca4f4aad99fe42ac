package extractor

import (
	"bytes"
	"log/slog"
	"strings"

	"deltawatch/internal/domain/entity"

	"github.com/PuerkitoBio/goquery"
)

// HTMLExtractor scrapes listing pages with CSS selectors.
// The absolute link of each listing is its id; the title is the text of
// TitleSelector, or of the link when no title selector is configured.
type HTMLExtractor struct {
	cfg entity.ScraperConfig
}

// NewHTMLExtractor creates an HTMLExtractor.
func NewHTMLExtractor(cfg entity.ScraperConfig) *HTMLExtractor {
	return &HTMLExtractor{cfg: cfg}
}

// Extract implements Extractor. Items without a link are skipped.
// A page without any matching item yields an empty result, not an error.
func (h *HTMLExtractor) Extract(payload *entity.Payload) ([]entity.Item, error) {
	if payload == nil {
		return nil, &entity.ExtractionError{Source: "payload", Err: entity.ErrInvalidInput}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(payload.Body))
	if err != nil {
		return nil, &entity.ExtractionError{Source: sourceOf(payload), Err: err}
	}

	var items []entity.Item
	doc.Find(h.cfg.ItemSelector).Each(func(i int, itemEl *goquery.Selection) {
		link := itemEl.Find(h.cfg.URLSelector).First()
		href, ok := link.Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			slog.Debug("skipping item without link", slog.Int("index", i))
			return
		}

		title := strings.TrimSpace(link.Text())
		if h.cfg.TitleSelector != "" {
			title = strings.TrimSpace(itemEl.Find(h.cfg.TitleSelector).First().Text())
		}

		items = append(items, entity.Item{
			ID:    makeAbsoluteURL(href, h.cfg.URLPrefix),
			Title: collapseSpace(title),
		})
	})

	return dedupe(items), nil
}

// makeAbsoluteURL converts a relative URL to absolute using the given prefix.
func makeAbsoluteURL(urlStr, prefix string) string {
	if strings.HasPrefix(urlStr, "http://") || strings.HasPrefix(urlStr, "https://") {
		return urlStr
	}
	if prefix == "" {
		return urlStr
	}
	if strings.HasPrefix(urlStr, "/") {
		return strings.TrimSuffix(prefix, "/") + urlStr
	}
	return strings.TrimSuffix(prefix, "/") + "/" + urlStr
}

// collapseSpace folds runs of whitespace, which listing markup is full of.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
