// Package text provides rune-aware string helpers for message limits that
// count characters, not bytes.
package text

// CountRunes counts the Unicode characters in s.
//
//	CountRunes("hello")     // 5
//	CountRunes("こんにちは") // 5
func CountRunes(s string) int {
	return len([]rune(s))
}

// Truncate shortens s to at most max characters, ending it with suffix when
// anything was cut. A suffix longer than max is itself cut to max.
func Truncate(s string, max int, suffix string) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	sfx := []rune(suffix)
	if len(sfx) >= max {
		return string(sfx[:max])
	}
	return string(runes[:max-len(sfx)]) + suffix
}
