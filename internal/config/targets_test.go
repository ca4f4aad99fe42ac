package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deltawatch/internal/domain/entity"
)

func TestParseTargets(t *testing.T) {
	targets, err := ParseTargets([]byte(`
targets:
  - name: amsterdam
    url: https://example.com/rent/amsterdam
    kind: html
    scraper:
      item_selector: div.card
      url_selector: a.title
      title_selector: h2
      url_prefix: https://example.com
`))
	require.NoError(t, err)
	require.Len(t, targets, 1)

	want := &entity.ScraperConfig{
		ItemSelector:  "div.card",
		URLSelector:   "a.title",
		TitleSelector: "h2",
		URLPrefix:     "https://example.com",
	}
	assert.Equal(t, want, targets[0].Scraper)
}

func TestParseTargets_Errors(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{name: "malformed", yaml: "targets: [", wantErr: "parse targets file"},
		{name: "empty", yaml: "targets: []", wantErr: "no targets"},
		{
			name:    "bad url",
			yaml:    "targets:\n  - name: a\n    url: ftp://example.com\n",
			wantErr: `target "a"`,
		},
		{
			name:    "unknown kind",
			yaml:    "targets:\n  - name: a\n    url: https://example.com\n    kind: json\n",
			wantErr: "unknown kind",
		},
		{
			name:    "duplicate names",
			yaml:    "targets:\n  - name: a\n    url: https://example.com/1\n  - name: a\n    url: https://example.com/2\n",
			wantErr: `duplicate target name "a"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTargets([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
