package sentry

import (
	"fmt"
	"strings"
)

const (
	maxNarratedFrames      = 5
	maxNarratedBreadcrumbs = 5
)

// noEventsNarration is what the analyzer sees when the window held no
// events. Downstream prompts key off this literal, keep it stable.
const noEventsNarration = "No Sentry events found."

// Narrator renders raw events into the bounded text block fed to the
// analyzer, and builds per-event deep links into the Sentry UI.
type Narrator struct {
	baseURL string
	org     string
	project string
}

// NewNarrator creates a narrator that links into the given Sentry
// instance.
func NewNarrator(baseURL, org, project string) *Narrator {
	return &Narrator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		org:     org,
		project: project,
	}
}

// EventLink returns the UI deep link for one event. The format is
// relied on by UI and Slack consumers, do not change it.
func (n *Narrator) EventLink(eventID string) string {
	return fmt.Sprintf("%s/organizations/%s/issues/?project=%s&query=%s",
		n.baseURL, n.org, n.project, eventID)
}

// Links returns a deep link for every event that carries an id.
func (n *Narrator) Links(events []Event) []string {
	links := make([]string, 0, len(events))
	for _, ev := range events {
		if id := ev.ID(); id != "" {
			links = append(links, n.EventLink(id))
		}
	}
	return links
}

// Narrate renders the events into one text block, in input order, with
// a blank line between events. Each event contributes its timestamp,
// error type, message, up to the first five stack frames, the last
// five breadcrumbs, whitelisted context tags, and a deep link.
func (n *Narrator) Narrate(events []Event) string {
	if len(events) == 0 {
		return noEventsNarration
	}

	blocks := make([]string, 0, len(events))
	for i, ev := range events {
		blocks = append(blocks, n.narrateEvent(i+1, ev))
	}
	return strings.Join(blocks, "\n\n")
}

func (n *Narrator) narrateEvent(ordinal int, ev Event) string {
	lines := []string{
		fmt.Sprintf("Event %d:", ordinal),
		"- Time: " + ev.Timestamp(),
		"- Error: " + ev.ErrorType(),
	}

	if message := ev.MessageText(); message != "" {
		lines = append(lines, `- Message: "`+message+`"`)
	}

	if frames := ev.StackFrames(); len(frames) > 0 {
		lines = append(lines, "- Stack Trace:")
		for _, frame := range frames[:min(len(frames), maxNarratedFrames)] {
			lines = append(lines, "  "+frame)
		}
		if extra := len(frames) - maxNarratedFrames; extra > 0 {
			lines = append(lines, fmt.Sprintf("  ... (%d more frames)", extra))
		}
	}

	if crumbs := ev.Breadcrumbs(); len(crumbs) > 0 {
		lines = append(lines, "- Breadcrumbs (user actions leading to error):")
		if len(crumbs) > maxNarratedBreadcrumbs {
			crumbs = crumbs[len(crumbs)-maxNarratedBreadcrumbs:]
		}
		for _, crumb := range crumbs {
			lines = append(lines, "  "+crumb)
		}
	}

	if tags := ev.ContextTags(); len(tags) > 0 {
		lines = append(lines, "- Context: "+strings.Join(tags, ", "))
	}

	if id := ev.ID(); id != "" {
		lines = append(lines, "- Link: "+n.EventLink(id))
	}

	return strings.Join(lines, "\n")
}
