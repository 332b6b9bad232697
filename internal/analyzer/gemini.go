package analyzer

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/loglens/loglens/internal/logging"
)

const (
	// DefaultModel is used when no model is configured.
	DefaultModel = "gemini-2.5-flash"

	temperature     = 0.7
	maxOutputTokens = 8000
)

// Caller produces raw model output for a single prompt. The production
// implementation is GeminiCaller; tests substitute a stub.
type Caller interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiCaller calls the Gemini API through the genai SDK.
type GeminiCaller struct {
	client *genai.Client
	model  string
	logger *logging.Logger
}

// NewGeminiCaller creates a caller bound to one model. An empty model
// name falls back to DefaultModel.
func NewGeminiCaller(ctx context.Context, apiKey, model string) (*GeminiCaller, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &GeminiCaller{
		client: client,
		model:  model,
		logger: logging.GetLogger("analyzer.gemini"),
	}, nil
}

// Model returns the model identifier being used.
func (g *GeminiCaller) Model() string {
	return g.model
}

// Generate implements Caller. Every failure mode, including an empty
// response body, is reported as a CallError so the retry layer treats
// it as transient.
func (g *GeminiCaller) Generate(ctx context.Context, prompt string) (string, error) {
	g.logger.Info("Calling Gemini API with %s", g.model)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](temperature),
		MaxOutputTokens: maxOutputTokens,
	})
	if err != nil {
		g.logger.Error("Gemini API error: %v", err)
		return "", NewCallError("Gemini API call failed: %v", err)
	}

	if len(resp.Candidates) > 0 {
		reason := resp.Candidates[0].FinishReason
		g.logger.Info("Response finish reason: %s", reason)
		if reason != "" && reason != genai.FinishReasonStop {
			g.logger.Warn("Response may be incomplete. Finish reason: %s", reason)
		}
	}

	content := resp.Text()
	if content == "" {
		return "", NewCallError("Empty response from Gemini API")
	}

	g.logger.Info("Successfully received response from Gemini (%d characters)", len(content))
	g.logger.Debug("Full response: %s", content)
	return content, nil
}

var _ Caller = (*GeminiCaller)(nil)
