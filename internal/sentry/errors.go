package sentry

import "fmt"

// Kind classifies client errors so callers can apply the right failure
// policy: authentication and rate-limit failures abort a request,
// everything else degrades to an empty event list.
type Kind int

const (
	// KindAuth means the configured auth token was rejected.
	KindAuth Kind = iota
	// KindRateLimit means the API asked us to back off.
	KindRateLimit
	// KindNotFound means the org/project path does not exist.
	KindNotFound
	// KindUpstream covers server errors and malformed responses.
	KindUpstream
)

// Error is a classified Sentry client error.
type Error struct {
	Kind    Kind
	Message string

	// RetryAfter is the advertised wait in seconds; only set for
	// KindRateLimit.
	RetryAfter string
}

func (e *Error) Error() string {
	return e.Message
}

// NewAuthError reports a rejected auth token.
func NewAuthError() *Error {
	return &Error{Kind: KindAuth, Message: "Invalid or expired Sentry auth token"}
}

// NewRateLimitError reports a rate-limited request with the advertised
// wait in seconds.
func NewRateLimitError(retryAfter string) *Error {
	return &Error{
		Kind:       KindRateLimit,
		Message:    fmt.Sprintf("Rate limit exceeded. Retry after %s seconds.", retryAfter),
		RetryAfter: retryAfter,
	}
}

// NewNotFoundError reports a missing org/project path.
func NewNotFoundError() *Error {
	return &Error{Kind: KindNotFound, Message: "Sentry project not found. Check org/project names."}
}

// NewUpstreamError reports a server-side or response-shape failure.
func NewUpstreamError(message string) *Error {
	return &Error{Kind: KindUpstream, Message: message}
}

// InvalidTimestampError reports a timestamp string that could not be
// parsed as ISO-8601.
type InvalidTimestampError struct {
	Value string
}

func (e *InvalidTimestampError) Error() string {
	return "Invalid timestamp format: " + e.Value
}
