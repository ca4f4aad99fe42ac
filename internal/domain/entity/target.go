package entity

import (
	"errors"
	"fmt"
	"strings"
)

// TargetKind selects how a target's payload is turned into items.
type TargetKind string

const (
	// KindHTML targets are listing pages scraped with CSS selectors.
	KindHTML TargetKind = "html"
	// KindRSS targets are RSS or Atom feeds.
	KindRSS TargetKind = "rss"
)

// Target is one page polled by a listing job.
type Target struct {
	Name    string         `yaml:"name" json:"name"`
	URL     string         `yaml:"url" json:"url"`
	Kind    TargetKind     `yaml:"kind" json:"kind"`
	Scraper *ScraperConfig `yaml:"scraper,omitempty" json:"scraper,omitempty"`
}

// ScraperConfig holds the CSS selectors of an HTML target.
type ScraperConfig struct {
	// ItemSelector matches one element per listing
	ItemSelector string `yaml:"item_selector" json:"item_selector"`

	// URLSelector matches the link inside an item; its href is the item id
	URLSelector string `yaml:"url_selector" json:"url_selector"`

	// TitleSelector matches the title inside an item.
	// When empty, the link text is the title.
	TitleSelector string `yaml:"title_selector,omitempty" json:"title_selector,omitempty"`

	// URLPrefix is prepended to relative links
	URLPrefix string `yaml:"url_prefix,omitempty" json:"url_prefix,omitempty"`
}

// ParariusScraperConfig returns the selectors of pararius.nl search results.
func ParariusScraperConfig() *ScraperConfig {
	return &ScraperConfig{
		ItemSelector: "li.search-list__item--listing",
		URLSelector:  "a.listing-search-item__link",
		URLPrefix:    "https://www.pararius.nl",
	}
}

// Validate checks the target and fills defaults: an empty kind is html,
// and an html target without selectors uses ParariusScraperConfig.
func (t *Target) Validate() error {
	if t.Kind == "" {
		t.Kind = KindHTML
	}
	t.Kind = TargetKind(strings.ToLower(string(t.Kind)))

	if err := ValidateRequestURL(t.URL, false); err != nil {
		return fmt.Errorf("target %q: %w", t.Name, err)
	}

	switch t.Kind {
	case KindHTML:
		if t.Scraper == nil {
			t.Scraper = ParariusScraperConfig()
		}
		if t.Scraper.ItemSelector == "" || t.Scraper.URLSelector == "" {
			return fmt.Errorf("target %q: %w", t.Name,
				errors.New("item_selector and url_selector are required for html targets"))
		}
	case KindRSS:
	default:
		return fmt.Errorf("target %q: %w: unknown kind %q", t.Name, ErrInvalidInput, t.Kind)
	}

	if t.Name == "" {
		t.Name = t.URL
	}
	return nil
}
