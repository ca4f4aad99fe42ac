package logging

import (
	"log/slog"
	"regexp"
)

// Patterns are applied in order; more specific ones first.
var redactions = []struct {
	pattern *regexp.Regexp
	repl    string
}{
	{regexp.MustCompile(`hooks\.slack\.com/services/[A-Za-z0-9/_-]+`), "hooks.slack.com/services/****"},
	{regexp.MustCompile(`(discord(?:app)?\.com/api/webhooks/\d+)/[A-Za-z0-9._-]+`), "$1/****"},
	{regexp.MustCompile(`github_pat_[A-Za-z0-9_]+`), "github_pat_****"},
	{regexp.MustCompile(`gh[pousr]_[A-Za-z0-9]{20,}`), "gh*_****"},
	{regexp.MustCompile(`(?i)(bearer\s+)[A-Za-z0-9._~+/-]+=*`), "${1}****"},
	{regexp.MustCompile(`://([^:/@\s]+):([^@\s]+)@`), "://$1:****@"},
}

// Redact returns err's message with webhook tokens, access tokens and
// connection string passwords masked.
func Redact(err error) string {
	if err == nil {
		return ""
	}
	return RedactString(err.Error())
}

// RedactString masks secrets in s.
func RedactString(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.repl)
	}
	return s
}

// Err is an error attribute with secrets masked.
func Err(err error) slog.Attr {
	return slog.String("error", Redact(err))
}
