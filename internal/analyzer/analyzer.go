// Package analyzer turns a problem report and its log evidence into
// ranked probable causes by prompting a generative model and holding
// its answer to a strict JSON contract.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/loglens/loglens/internal/logging"
	"github.com/loglens/loglens/internal/retry"
)

var (
	requiredFields      = []string{"causes", "suggested_response", "logs_summary"}
	causeRequiredFields = []string{"rank", "cause", "explanation", "confidence"}

	validConfidences = map[string]bool{"high": true, "medium": true, "low": true}
)

// Cause is one ranked probable cause from the model.
type Cause struct {
	Rank        int    `json:"rank"`
	Cause       string `json:"cause"`
	Explanation string `json:"explanation"`
	Confidence  string `json:"confidence"`
}

// Result is a validated analysis answer. Field values are carried
// through from the model response unchanged.
type Result struct {
	Causes            []Cause `json:"causes"`
	SuggestedResponse string  `json:"suggested_response"`
	LogsSummary       string  `json:"logs_summary"`
}

// Analyzer drives the model call, retry, parsing, and validation for
// one analysis at a time.
type Analyzer struct {
	caller   Caller
	retryCfg retry.Config
	metrics  *Metrics
	logger   *logging.Logger
}

// New creates an Analyzer on top of the given model caller.
func New(caller Caller, reg prometheus.Registerer) *Analyzer {
	return &Analyzer{
		caller: caller,
		retryCfg: retry.Config{
			MaxAttempts:    3,
			InitialBackoff: 2 * time.Second,
			MaxBackoff:     10 * time.Second,
		},
		metrics: NewMetrics(reg),
		logger:  logging.GetLogger("analyzer"),
	}
}

// Analyze prompts the model with the request and returns its validated
// answer. Model call failures are retried with backoff; contract
// violations in the response body are returned as FormatErrors on the
// first occurrence.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Result, error) {
	a.logger.Info("Analyzing logs for customer %s", req.CustomerID)

	prompt := buildPrompt(req)

	cfg := a.retryCfg
	cfg.Retryable = isCallError
	cfg.OnRetry = func(attempt int, backoff time.Duration, err error) {
		a.metrics.Retries.Inc()
		a.logger.Warn("Model call failed (attempt %d/%d), retrying in %v: %v",
			attempt, cfg.MaxAttempts, backoff, err)
	}

	var content string
	err := retry.Do(ctx, cfg, func(ctx context.Context) error {
		a.metrics.ModelCalls.Inc()
		out, err := a.caller.Generate(ctx, prompt)
		if err != nil {
			return err
		}
		content = out
		return nil
	})
	if err != nil {
		a.metrics.CallFailures.Inc()
		return nil, err
	}

	result, err := a.parseResponse(content)
	if err != nil {
		a.metrics.FormatFailures.Inc()
		return nil, err
	}

	a.logger.Info("Successfully analyzed logs and validated response")
	return result, nil
}

func isCallError(err error) bool {
	var callErr *CallError
	return errors.As(err, &callErr)
}

// parseResponse strips code fences, parses the JSON, validates it
// against the contract, and decodes it into a Result.
func (a *Analyzer) parseResponse(content string) (*Result, error) {
	cleaned := stripFences(content)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		if json.Valid([]byte(cleaned)) {
			// Valid JSON that is not an object carries none of the
			// required keys.
			return nil, NewFormatError("Missing required fields: %v", requiredFields)
		}
		a.logger.Error("Failed to parse LLM response as JSON: %v", err)
		a.logger.Error("Response content: %s", truncate(cleaned, 500))
		return nil, NewFormatError("Invalid JSON in LLM response: %v", err)
	}

	if err := a.validateResponse(raw); err != nil {
		a.logger.Error("Invalid LLM response structure: %s", truncate(cleaned, 500))
		return nil, err
	}

	var result Result
	// Key presence is validated above; a mistyped leaf value decodes
	// to its zero value rather than failing the analysis.
	_ = json.Unmarshal([]byte(cleaned), &result)
	return &result, nil
}

func (a *Analyzer) validateResponse(raw map[string]json.RawMessage) error {
	var missing []string
	for _, field := range requiredFields {
		if _, ok := raw[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return NewFormatError("Missing required fields: %v", missing)
	}

	var causes []json.RawMessage
	if isJSONNull(raw["causes"]) {
		return NewFormatError("'causes' must be an array")
	}
	if err := json.Unmarshal(raw["causes"], &causes); err != nil {
		return NewFormatError("'causes' must be an array")
	}
	if len(causes) != 3 {
		a.logger.Warn("Expected 3 causes but got %d", len(causes))
	}

	for i, c := range causes {
		var cause map[string]json.RawMessage
		if isJSONNull(c) {
			return NewFormatError("Cause %d must be an object", i)
		}
		if err := json.Unmarshal(c, &cause); err != nil {
			return NewFormatError("Cause %d must be an object", i)
		}

		var causeMissing []string
		for _, field := range causeRequiredFields {
			if _, ok := cause[field]; !ok {
				causeMissing = append(causeMissing, field)
			}
		}
		if len(causeMissing) > 0 {
			return NewFormatError("Cause %d missing fields: %v", i, causeMissing)
		}

		var confidence string
		_ = json.Unmarshal(cause["confidence"], &confidence)
		if !validConfidences[strings.ToLower(confidence)] {
			a.logger.Warn("Invalid confidence level '%s' in cause %d, expected one of high, medium, low", confidence, i)
		}
	}

	for _, field := range []string{"suggested_response", "logs_summary"} {
		var value string
		_ = json.Unmarshal(raw[field], &value)
		if strings.TrimSpace(value) == "" {
			return NewFormatError("'%s' cannot be empty", field)
		}
	}

	return nil
}

// stripFences removes the markdown code fences some model answers wrap
// around the JSON despite the prompt instruction.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func isJSONNull(raw json.RawMessage) bool {
	return strings.TrimSpace(string(raw)) == "null"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
