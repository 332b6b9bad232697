package slack

import (
	"fmt"
	"strings"

	"github.com/loglens/loglens/internal/triage"
)

// Message is a Slack slash-command response payload.
type Message struct {
	ResponseType string  `json:"response_type"`
	Text         string  `json:"text,omitempty"`
	Blocks       []Block `json:"blocks,omitempty"`
}

// Block is a single Block Kit block. Only the block shapes this
// service emits are modeled.
type Block struct {
	Type string `json:"type"`
	Text *Text  `json:"text,omitempty"`
}

// Text is a Block Kit text object.
type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func headerBlock(text string) Block {
	return Block{Type: "header", Text: &Text{Type: "plain_text", Text: text}}
}

func sectionBlock(markdown string) Block {
	return Block{Type: "section", Text: &Text{Type: "mrkdwn", Text: markdown}}
}

func dividerBlock() Block {
	return Block{Type: "divider"}
}

// FormatResult renders an analysis result as a channel-visible Block
// Kit message: a header, one section per ranked cause, the suggested
// response as a quote, and a closing line with the event count and a
// link into Sentry when one exists.
func FormatResult(result *triage.Result) Message {
	blocks := []Block{headerBlock("🔍 LogLens Analysis")}

	for _, cause := range result.Causes {
		blocks = append(blocks, sectionBlock(fmt.Sprintf(
			"*%d. %s* (confidence: %s)\n%s",
			cause.Rank, cause.Cause, strings.ToUpper(cause.Confidence), cause.Explanation,
		)))
	}

	blocks = append(blocks, dividerBlock())

	if result.SuggestedResponse != "" {
		blocks = append(blocks, sectionBlock(fmt.Sprintf("*Suggested Response:*\n> %s", result.SuggestedResponse)))
		blocks = append(blocks, dividerBlock())
	}

	logsText := fmt.Sprintf("*Logs:* Found %d event", result.EventsFound)
	if result.EventsFound != 1 {
		logsText += "s"
	}
	if len(result.SentryLinks) > 0 {
		logsText += fmt.Sprintf(" | <%s|View in Sentry>", result.SentryLinks[0])
	}
	blocks = append(blocks, sectionBlock(logsText))

	return Message{
		ResponseType: "in_channel",
		Blocks:       blocks,
	}
}

// FormatError renders an error as an ephemeral message visible only to
// the user who ran the command.
func FormatError(message, suggestion string) Message {
	text := fmt.Sprintf("❌ *Error:* %s", message)
	if suggestion != "" {
		text += fmt.Sprintf("\n\n💡 *Suggestion:* %s", suggestion)
	}

	return Message{
		ResponseType: "ephemeral",
		Text:         text,
	}
}
