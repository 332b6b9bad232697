package analyzer

import "fmt"

// CallError reports a failed or empty model call. Call failures are
// transient and eligible for retry.
type CallError struct {
	Message string
}

func (e *CallError) Error() string {
	return e.Message
}

// NewCallError builds a CallError with a formatted message.
func NewCallError(format string, args ...interface{}) *CallError {
	return &CallError{Message: fmt.Sprintf(format, args...)}
}

// FormatError reports model output that violates the response contract:
// unparseable JSON, missing fields, wrong shapes, or blank required
// strings. Format errors are never retried; re-parsing the same text
// cannot fix it, and a fresh answer requires a fresh Analyze call.
type FormatError struct {
	Message string
}

func (e *FormatError) Error() string {
	return e.Message
}

// NewFormatError builds a FormatError with a formatted message.
func NewFormatError(format string, args ...interface{}) *FormatError {
	return &FormatError{Message: fmt.Sprintf(format, args...)}
}
