package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/triage"
)

// TriageService runs the analysis pipeline for one support issue.
type TriageService interface {
	Analyze(ctx context.Context, req triage.Request) (*triage.Result, error)
}

// AnalyzeHandler handles POST /api/analyze requests
type AnalyzeHandler struct {
	service TriageService
	logger  *logging.Logger
}

// NewAnalyzeHandler creates a new analyze handler
func NewAnalyzeHandler(service TriageService) *AnalyzeHandler {
	return &AnalyzeHandler{
		service: service,
		logger:  logging.GetLogger("api.analyze"),
	}
}

// Handle handles analyze requests. Pipeline failures are classified
// into safe caller-facing errors; the raw error only reaches the log.
func (h *AnalyzeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Malformed analyze request body: %v", err)
		WriteAPIError(w, NewInvalidRequestError("Invalid request body: expected a JSON object"))
		return
	}

	if apiErr := req.Validate(); apiErr != nil {
		h.logger.Warn("Invalid analyze request: %s", apiErr.Message)
		WriteAPIError(w, apiErr)
		return
	}

	result, err := h.service.Analyze(r.Context(), triage.Request{
		Description: req.Description,
		Timestamp:   req.Timestamp,
		CustomerID:  req.CustomerID,
	})
	if err != nil {
		apiErr := ClassifyPipelineError(err)
		if apiErr.StatusCode >= 500 {
			h.logger.Error("Analyze request failed: %v", err)
		} else {
			h.logger.Warn("Analyze request rejected: %v", err)
		}
		WriteAPIError(w, apiErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = WriteJSON(w, result)
}
