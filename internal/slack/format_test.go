package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loglens/loglens/internal/analyzer"
	"github.com/loglens/loglens/internal/triage"
)

func TestFormatResult(t *testing.T) {
	result := &triage.Result{
		Success: true,
		Causes: []analyzer.Cause{
			{Rank: 1, Cause: "Expired session token", Explanation: "The token TTL elapsed.", Confidence: "high"},
			{Rank: 2, Cause: "Clock skew", Explanation: "Client clock ahead of server.", Confidence: "low"},
		},
		SuggestedResponse: "Please ask the customer to sign in again.",
		SentryLinks: []string{
			"https://sentry.io/organizations/acme/issues/?project=shop&query=e1",
			"https://sentry.io/organizations/acme/issues/?project=shop&query=e2",
		},
		LogsSummary: "Two auth errors in the window.",
		EventsFound: 2,
	}

	msg := FormatResult(result)

	assert.Equal(t, "in_channel", msg.ResponseType)
	require.Len(t, msg.Blocks, 6)

	assert.Equal(t, "header", msg.Blocks[0].Type)
	assert.Equal(t, "🔍 LogLens Analysis", msg.Blocks[0].Text.Text)

	assert.Equal(t, "*1. Expired session token* (confidence: HIGH)\nThe token TTL elapsed.", msg.Blocks[1].Text.Text)
	assert.Equal(t, "*2. Clock skew* (confidence: LOW)\nClient clock ahead of server.", msg.Blocks[2].Text.Text)

	assert.Equal(t, "divider", msg.Blocks[3].Type)
	assert.Equal(t, "*Suggested Response:*\n> Please ask the customer to sign in again.", msg.Blocks[4].Text.Text)

	// Last block carries the event count and only the first link.
	last := msg.Blocks[len(msg.Blocks)-1]
	assert.Equal(t, "*Logs:* Found 2 events | <https://sentry.io/organizations/acme/issues/?project=shop&query=e1|View in Sentry>", last.Text.Text)
}

func TestFormatResultSingular(t *testing.T) {
	result := &triage.Result{
		Success:     true,
		EventsFound: 1,
	}

	msg := FormatResult(result)
	last := msg.Blocks[len(msg.Blocks)-1]
	assert.Equal(t, "*Logs:* Found 1 event", last.Text.Text)
}

func TestFormatResultNoEvents(t *testing.T) {
	result := &triage.Result{
		Success:           true,
		Causes:            []analyzer.Cause{{Rank: 1, Cause: "Unknown", Explanation: "No events found.", Confidence: "low"}},
		SuggestedResponse: "Ask for more detail.",
		LogsSummary:       "No events in the window.",
		EventsFound:       0,
	}

	msg := FormatResult(result)
	last := msg.Blocks[len(msg.Blocks)-1]
	assert.Equal(t, "*Logs:* Found 0 events", last.Text.Text)
	assert.NotContains(t, last.Text.Text, "View in Sentry")
}

func TestFormatError(t *testing.T) {
	t.Run("with suggestion", func(t *testing.T) {
		msg := FormatError("Sentry rate limit exceeded", "Please try again in a few minutes")
		assert.Equal(t, "ephemeral", msg.ResponseType)
		assert.Empty(t, msg.Blocks)
		assert.Equal(t, "❌ *Error:* Sentry rate limit exceeded\n\n💡 *Suggestion:* Please try again in a few minutes", msg.Text)
	})

	t.Run("without suggestion", func(t *testing.T) {
		msg := FormatError("Analysis failed", "")
		assert.Equal(t, "❌ *Error:* Analysis failed", msg.Text)
		assert.NotContains(t, msg.Text, "Suggestion")
	})
}
