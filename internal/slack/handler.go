package slack

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/loglens/loglens/internal/analyzer"
	"github.com/loglens/loglens/internal/api"
	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/sentry"
	"github.com/loglens/loglens/internal/triage"
)

const usageHint = "Use format: /loglens [description] | [timestamp] | [customer_id]"

// TriageService runs the analysis pipeline for one support issue.
type TriageService interface {
	Analyze(ctx context.Context, req triage.Request) (*triage.Result, error)
}

// Handler serves the /slack/commands endpoint. Requests are
// authenticated by Slack's signature scheme rather than the shared
// secret the JSON API uses.
type Handler struct {
	signingSecret string
	service       TriageService
	logger        *logging.Logger
	now           func() time.Time
}

// NewHandler creates a Slack command handler. An empty signing secret
// leaves the endpoint responding 503 to everything.
func NewHandler(signingSecret string, service TriageService) *Handler {
	return &Handler{
		signingSecret: signingSecret,
		service:       service,
		logger:        logging.GetLogger("slack"),
		now:           time.Now,
	}
}

// ServeHTTP handles a slash-command request. Verification failures are
// HTTP errors; everything after verification is a 200 whose payload
// tells the user what happened, because Slack renders non-200 bodies
// poorly.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.signingSecret == "" {
		h.logger.Error("Rejected Slack command: signing secret not configured")
		api.WriteError(w, http.StatusServiceUnavailable, string(api.ErrorCodeServiceUnavailable), "Slack integration not configured")
		return
	}

	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if timestamp == "" || signature == "" {
		h.logger.Warn("Missing Slack signature headers")
		api.WriteError(w, http.StatusUnauthorized, string(api.ErrorCodeUnauthorized), "Missing signature headers")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.logger.Warn("Failed to read Slack request body: %v", err)
		api.WriteError(w, http.StatusBadRequest, string(api.ErrorCodeInvalidRequest), "Failed to read request body")
		return
	}

	if err := VerifySignature(h.signingSecret, timestamp, body, signature, h.now()); err != nil {
		h.logger.Warn("Slack signature verification failed: %v", err)
		message := "Invalid signature"
		if errors.Is(err, ErrTimestampTooOld) {
			message = "Request timestamp too old"
		}
		api.WriteError(w, http.StatusUnauthorized, string(api.ErrorCodeUnauthorized), message)
		return
	}

	form, err := url.ParseQuery(string(body))
	if err != nil {
		h.logger.Warn("Malformed Slack form body: %v", err)
		api.WriteError(w, http.StatusBadRequest, string(api.ErrorCodeInvalidRequest), "Malformed form body")
		return
	}
	commandText := form.Get("text")

	h.logger.Info("Received Slack command: %s", commandText)

	command, err := ParseCommand(commandText)
	if err != nil {
		h.writeMessage(w, FormatError(err.Error(), usageHint))
		return
	}

	result, err := h.service.Analyze(r.Context(), triage.Request{
		Description: command.Description,
		Timestamp:   command.Timestamp,
		CustomerID:  command.CustomerID,
	})
	if err != nil {
		h.logger.Error("Slack command analysis failed: %v", err)
		message, suggestion := pipelineErrorMessage(err)
		h.writeMessage(w, FormatError(message, suggestion))
		return
	}

	h.writeMessage(w, FormatResult(result))
}

func (h *Handler) writeMessage(w http.ResponseWriter, msg Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := api.WriteJSON(w, msg); err != nil {
		h.logger.Error("Failed to write Slack response: %v", err)
	}
}

// pipelineErrorMessage maps a pipeline failure to the user-facing
// error and suggestion lines. Messages stay generic; the raw error
// only reaches the log.
func pipelineErrorMessage(err error) (string, string) {
	var tsErr *sentry.InvalidTimestampError
	if errors.As(err, &tsErr) {
		return fmt.Sprintf("Invalid timestamp: %s", tsErr.Value),
			"Use ISO 8601 format, e.g., 2025-01-19T14:30:00Z"
	}

	var sentryErr *sentry.Error
	if errors.As(err, &sentryErr) {
		switch sentryErr.Kind {
		case sentry.KindAuth:
			return "Sentry authentication failed",
				"Please verify Sentry credentials are configured correctly"
		case sentry.KindRateLimit:
			return "Sentry rate limit exceeded",
				"Please try again in a few minutes"
		}
	}

	var formatErr *analyzer.FormatError
	if errors.As(err, &formatErr) {
		return "Analysis failed: Invalid response from AI",
			"Please try again or contact support"
	}

	var callErr *analyzer.CallError
	if errors.As(err, &callErr) {
		return "Analysis failed: AI service error",
			"Please try again in a few moments"
	}

	return "An error occurred while processing your request",
		"Please try again or contact support if the issue persists"
}
