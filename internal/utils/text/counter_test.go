package text_test

import (
	"testing"

	"deltawatch/internal/utils/text"
)

func TestCountRunes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "ASCII", input: "hello", want: 5},
		{name: "empty", input: "", want: 0},
		{name: "Japanese", input: "こんにちは", want: 5},
		{name: "Dutch with diacritics", input: "Appartement Kralingse Plaslaan, Rotterdam – € 1.450", want: 52},
		{name: "emoji", input: "Hello👋", want: 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := text.CountRunes(tt.input); got != tt.want {
				t.Errorf("CountRunes(%q) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		max    int
		suffix string
		want   string
	}{
		{name: "fits", input: "short", max: 10, suffix: "...", want: "short"},
		{name: "exact", input: "abcde", max: 5, suffix: "...", want: "abcde"},
		{name: "cut", input: "abcdefghij", max: 7, suffix: "...", want: "abcd..."},
		{name: "suffix longer than max", input: "abcdef", max: 2, suffix: "...", want: ".."},
		{name: "zero max", input: "abc", max: 0, suffix: "...", want: ""},
		{name: "multibyte not split", input: "ééééé", max: 4, suffix: "…", want: "ééé…"},
		{name: "emoji not split", input: "👋👋👋👋", max: 3, suffix: "", want: "👋👋👋"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := text.Truncate(tt.input, tt.max, tt.suffix)
			if got != tt.want {
				t.Errorf("Truncate(%q, %d, %q) = %q, want %q", tt.input, tt.max, tt.suffix, got, tt.want)
			}
			if text.CountRunes(got) > tt.max {
				t.Errorf("result has %d characters, max %d", text.CountRunes(got), tt.max)
			}
		})
	}
}
