package extractor

import (
	"errors"
	"testing"

	"deltawatch/internal/domain/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Example</title>
  <item><title>First post</title><link>https://example.com/1</link></item>
  <item><title>Guid only</title><guid>urn:example:2</guid></item>
  <item><title>No identity</title></item>
  <item><title>First again</title><link>https://example.com/1</link></item>
</channel>
</rss>`

const atomFeed = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom example</title>
  <entry><title>Entry</title><link href="https://example.com/atom/1"/><id>urn:uuid:1</id></entry>
</feed>`

func TestFeedExtractor_RSS(t *testing.T) {
	items, err := NewFeedExtractor().Extract(&entity.Payload{Body: []byte(rssFeed)})

	require.NoError(t, err)
	assert.Equal(t, []entity.Item{
		{ID: "https://example.com/1", Title: "First post"},
		{ID: "urn:example:2", Title: "Guid only"},
	}, items)
}

func TestFeedExtractor_Atom(t *testing.T) {
	items, err := NewFeedExtractor().Extract(&entity.Payload{Body: []byte(atomFeed)})

	require.NoError(t, err)
	assert.Equal(t, []entity.Item{{ID: "https://example.com/atom/1", Title: "Entry"}}, items)
}

func TestFeedExtractor_Malformed(t *testing.T) {
	_, err := NewFeedExtractor().Extract(&entity.Payload{URL: "https://example.com/feed", Body: []byte("not a feed")})

	var extractionErr *entity.ExtractionError
	require.True(t, errors.As(err, &extractionErr))
	assert.Equal(t, "https://example.com/feed", extractionErr.Source)
	assert.False(t, extractionErr.Transient())
}

func TestNewForTarget(t *testing.T) {
	html := entity.Target{URL: "https://www.pararius.nl/huurwoningen/rotterdam"}
	require.NoError(t, html.Validate())
	ex, err := NewForTarget(html)
	require.NoError(t, err)
	assert.IsType(t, &HTMLExtractor{}, ex)

	ex, err = NewForTarget(entity.Target{URL: "https://example.com/feed", Kind: entity.KindRSS})
	require.NoError(t, err)
	assert.IsType(t, &FeedExtractor{}, ex)

	_, err = NewForTarget(entity.Target{Kind: "json"})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)

	_, err = NewForTarget(entity.Target{Kind: entity.KindHTML})
	assert.ErrorIs(t, err, entity.ErrInvalidInput)
}
