package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/loglens/loglens/internal/analyzer"
	"github.com/loglens/loglens/internal/sentry"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// ErrorCode represents error codes used in API responses
type ErrorCode string

const (
	// ErrorCodeInvalidRequest represents invalid request parameters
	ErrorCodeInvalidRequest ErrorCode = "INVALID_REQUEST"

	// ErrorCodeUnauthorized represents unauthorized access
	ErrorCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrorCodeTooManyRequests represents rate limiting
	ErrorCodeTooManyRequests ErrorCode = "TOO_MANY_REQUESTS"

	// ErrorCodeInternalError represents an internal server error
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"

	// ErrorCodeServiceUnavailable represents an unavailable upstream
	ErrorCodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrorCodeMethodNotAllowed represents a wrong HTTP method
	ErrorCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
)

// APIError represents an API error with status code and message
type APIError struct {
	Code       ErrorCode
	StatusCode int
	Message    string
}

// NewAPIError creates a new API error
func NewAPIError(code ErrorCode, statusCode int, message string) *APIError {
	return &APIError{
		Code:       code,
		StatusCode: statusCode,
		Message:    message,
	}
}

// Error returns the error message
func (e *APIError) Error() string {
	return e.Message
}

// GetResponse returns the error response
func (e *APIError) GetResponse() ErrorResponse {
	return ErrorResponse{
		Error:   string(e.Code),
		Message: e.Message,
	}
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string, args ...interface{}) *APIError {
	return NewAPIError(
		ErrorCodeInvalidRequest,
		http.StatusBadRequest,
		fmt.Sprintf(message, args...),
	)
}

// NewUnauthorizedError creates an unauthorized error
func NewUnauthorizedError(message string, args ...interface{}) *APIError {
	return NewAPIError(
		ErrorCodeUnauthorized,
		http.StatusUnauthorized,
		fmt.Sprintf(message, args...),
	)
}

// NewTooManyRequestsError creates a rate limiting error
func NewTooManyRequestsError(message string, args ...interface{}) *APIError {
	return NewAPIError(
		ErrorCodeTooManyRequests,
		http.StatusTooManyRequests,
		fmt.Sprintf(message, args...),
	)
}

// NewInternalServerError creates an internal server error
func NewInternalServerError(message string, args ...interface{}) *APIError {
	return NewAPIError(
		ErrorCodeInternalError,
		http.StatusInternalServerError,
		fmt.Sprintf(message, args...),
	)
}

// NewServiceUnavailableError creates an unavailable upstream error
func NewServiceUnavailableError(message string, args ...interface{}) *APIError {
	return NewAPIError(
		ErrorCodeServiceUnavailable,
		http.StatusServiceUnavailable,
		fmt.Sprintf(message, args...),
	)
}

// ClassifyPipelineError maps a triage pipeline failure to the APIError
// sent to the caller. Messages here are the complete external surface
// of a failure: they name the failing leg in operator terms but never
// carry tokens, paths, or upstream response bodies.
func ClassifyPipelineError(err error) *APIError {
	var tsErr *sentry.InvalidTimestampError
	if errors.As(err, &tsErr) {
		return NewInvalidRequestError("Invalid timestamp: must be a valid ISO 8601 datetime string (e.g., 2025-01-19T14:30:00Z)")
	}

	var sentryErr *sentry.Error
	if errors.As(err, &sentryErr) {
		switch sentryErr.Kind {
		case sentry.KindAuth:
			return NewInternalServerError("Sentry authentication failed. Please check configuration.")
		case sentry.KindRateLimit:
			return NewTooManyRequestsError("Sentry rate limit exceeded. Retry after %s seconds.", sentryErr.RetryAfter)
		}
	}

	var formatErr *analyzer.FormatError
	if errors.As(err, &formatErr) {
		return NewInternalServerError("Analysis failed: Invalid response format from AI.")
	}

	var callErr *analyzer.CallError
	if errors.As(err, &callErr) {
		return NewServiceUnavailableError("Analysis failed: AI service unavailable. Please try again later.")
	}

	return NewInternalServerError("An internal error occurred")
}
