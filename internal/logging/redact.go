package logging

import "regexp"

// redaction pairs a credential-shaped pattern with its replacement.
type redaction struct {
	pattern     *regexp.Regexp
	replacement string
}

// redactions are applied in order to every formatted log line.
// The keyword rule consumes an optional Bearer scheme so that
// "Authorization: Bearer xyz" collapses to a single marker instead
// of leaving the scheme word behind for the next rule.
var redactions = []redaction{
	// Keyword-prefixed credentials: token=..., "password": "...", key: ...
	{regexp.MustCompile(`(?i)(token|password|secret|key|authorization)["']?\s*[:=]\s*["']?(Bearer\s+)?\S+`), "${1}=***REDACTED***"},
	// Bearer credentials without a keyword prefix.
	{regexp.MustCompile(`(?i)Bearer\s+\S+`), "Bearer ***REDACTED***"},
	// Vendor token shapes that can appear without any keyword at all.
	{regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`), "***REDACTED***"},
	{regexp.MustCompile(`xoxb-[a-zA-Z0-9-]+`), "***REDACTED***"},
	{regexp.MustCompile(`sntrys_[a-zA-Z0-9]+`), "***REDACTED***"},
}

// Redact rewrites credential-shaped substrings to ***REDACTED***.
// Over-matching is acceptable here; leaking is not.
func Redact(s string) string {
	for _, r := range redactions {
		s = r.pattern.ReplaceAllString(s, r.replacement)
	}
	return s
}
