package analyzer

import "fmt"

// systemPrompt frames every analysis request. Downstream consumers
// depend on the JSON-only instruction; keep it intact.
const systemPrompt = `You are LogLens, a log analysis assistant. Your job is to analyze application
logs and help identify why a user experienced a problem.

Given:
1. Workflow documentation describing expected system behavior
2. Known error patterns and their resolutions
3. Sentry log events from the relevant time period
4. A problem description from customer support

You must return:
1. Top 3 most likely causes, ranked by probability
2. Confidence level for each (high/medium/low)
3. A suggested response that CS can send to the customer
4. Brief summary of relevant log findings

Be specific and actionable. Reference actual error messages from the logs.
If logs don't clearly indicate the cause, say so and suggest next steps.

IMPORTANT: You must respond with valid JSON only, no markdown formatting or code blocks.`

// Request carries everything one analysis needs: the problem report
// plus the evidence documents assembled by the pipeline.
type Request struct {
	Description    string
	Timestamp      string
	CustomerID     string
	NarratedEvents string
	WorkflowDoc    string
	KnownErrorsDoc string
}

// buildPrompt renders the single prompt sent to the model: the system
// preamble, the evidence sections, the problem report, and the answer
// skeleton the model must fill in.
func buildPrompt(req Request) string {
	return fmt.Sprintf(`%s

## Workflow Documentation
%s

## Known Error Patterns
%s

## Sentry Events
%s

## Problem Report
- Description: %s
- Timestamp: %s
- Customer ID: %s

Analyze and respond in JSON format (no markdown, just raw JSON):
{
  "causes": [{"rank": 1, "cause": "", "explanation": "", "confidence": ""}],
  "suggested_response": "",
  "logs_summary": ""
}`, systemPrompt, req.WorkflowDoc, req.KnownErrorsDoc, req.NarratedEvents,
		req.Description, req.Timestamp, req.CustomerID)
}
