package api

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/loglens/loglens/internal/sentry"
)

var validate = validator.New()

// AnalyzeRequest is the request body for POST /api/analyze.
type AnalyzeRequest struct {
	// Description of the customer issue
	Description string `json:"description" validate:"required,max=2000"`

	// Timestamp is the ISO 8601 instant the issue occurred
	Timestamp string `json:"timestamp" validate:"required"`

	// CustomerID identifies the affected customer (e.g. usr_abc123)
	CustomerID string `json:"customer_id" validate:"required,max=256"`
}

// Validate normalizes and checks the request, returning an APIError
// suitable for the caller on the first violation found.
func (r *AnalyzeRequest) Validate() *APIError {
	r.Description = strings.TrimSpace(r.Description)
	r.CustomerID = strings.TrimSpace(r.CustomerID)
	r.Timestamp = strings.TrimSpace(r.Timestamp)

	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return NewInvalidRequestError("Invalid request body")
		}
		return invalidFieldError(verrs[0])
	}

	if _, err := sentry.ParseTimestamp(r.Timestamp); err != nil {
		return NewInvalidRequestError("Invalid timestamp: must be a valid ISO 8601 datetime string (e.g., 2025-01-19T14:30:00Z)")
	}

	return nil
}

func invalidFieldError(ve validator.FieldError) *APIError {
	switch ve.StructField() {
	case "Description":
		if ve.Tag() == "max" {
			return NewInvalidRequestError("Invalid description: must be at most 2000 characters")
		}
		return NewInvalidRequestError("Invalid description: must not be empty")
	case "Timestamp":
		return NewInvalidRequestError("Invalid timestamp: must be a valid ISO 8601 datetime string (e.g., 2025-01-19T14:30:00Z)")
	case "CustomerID":
		if ve.Tag() == "max" {
			return NewInvalidRequestError("Invalid customer_id: must be at most 256 characters")
		}
		return NewInvalidRequestError("Invalid customer_id: must not be empty")
	}
	return NewInvalidRequestError("Invalid request body")
}
