package sentry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Event is a single raw tracking event. Sentry makes no shape
// guarantees beyond "JSON object", so the raw bytes are kept and every
// accessor decodes best-effort: absent or mistyped fields degrade to
// placeholders instead of failing.
type Event struct {
	raw    json.RawMessage
	detail eventDetail
}

// eventDetail is the typed best-effort view of an event. Pointer
// fields distinguish "absent" from "present but empty", which matters
// for placeholder selection.
type eventDetail struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Message     string        `json:"message"`
	Type        *string       `json:"type"`
	DateCreated string        `json:"dateCreated"`
	Datetime    string        `json:"datetime"`
	Metadata    eventMetadata `json:"metadata"`
	Entries     []eventEntry  `json:"entries"`
	Tags        []eventTag    `json:"tags"`
}

type eventMetadata struct {
	Type  *string `json:"type"`
	Value *string `json:"value"`
}

type eventEntry struct {
	Type string         `json:"type"`
	Data eventEntryData `json:"data"`
}

type eventEntryData struct {
	Values []json.RawMessage `json:"values"`
}

type eventTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type exceptionValue struct {
	Stacktrace struct {
		Frames []stackFrame `json:"frames"`
	} `json:"stacktrace"`
}

type stackFrame struct {
	Filename string          `json:"filename"`
	Function string          `json:"function"`
	LineNo   json.Number     `json:"lineNo"`
	Context  [][]interface{} `json:"context"`
}

type breadcrumbValue struct {
	Category string          `json:"category"`
	Message  string          `json:"message"`
	Level    *string         `json:"level"`
	Data     json.RawMessage `json:"data"`
}

// UnmarshalJSON keeps the raw bytes and decodes the typed view once.
// Decode errors are deliberately ignored: whatever fields did decode
// are used, the rest fall back to placeholders.
func (e *Event) UnmarshalJSON(b []byte) error {
	e.raw = append(json.RawMessage(nil), b...)
	e.detail = eventDetail{}
	_ = json.Unmarshal(b, &e.detail)
	return nil
}

// MarshalJSON returns the event exactly as received.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.raw == nil {
		return []byte("null"), nil
	}
	return e.raw, nil
}

// ID returns the event id, or "" when absent.
func (e Event) ID() string {
	return e.detail.ID
}

// Timestamp returns the first of dateCreated/datetime, else "Unknown".
func (e Event) Timestamp() string {
	if e.detail.DateCreated != "" {
		return e.detail.DateCreated
	}
	if e.detail.Datetime != "" {
		return e.detail.Datetime
	}
	return "Unknown"
}

// ErrorType prefers the nested metadata type over the top-level type.
// An absent type renders as "Unknown"; a present-but-empty one is kept
// as-is.
func (e Event) ErrorType() string {
	if e.detail.Metadata.Type != nil {
		return *e.detail.Metadata.Type
	}
	if e.detail.Type != nil {
		return *e.detail.Type
	}
	return "Unknown"
}

// MessageText resolves the display message: the nested metadata value
// wins, then the top-level message when it differs from the title,
// then the title. Empty means "no message line".
func (e Event) MessageText() string {
	message := e.detail.Message
	if e.detail.Metadata.Value != nil {
		message = *e.detail.Metadata.Value
	}
	if message != "" && message != e.detail.Title {
		return message
	}
	return e.detail.Title
}

// StackFrames renders every frame from every exception entry, in the
// order supplied. Each frame is "<file>:<line> in <func>()", with the
// trimmed middle context line appended when one exists.
func (e Event) StackFrames() []string {
	var frames []string
	for _, entry := range e.detail.Entries {
		if entry.Type != "exception" {
			continue
		}
		for _, rawValue := range entry.Data.Values {
			// Best-effort decode: whatever frames survive are used.
			var value exceptionValue
			_ = json.Unmarshal(rawValue, &value)
			for _, frame := range value.Stacktrace.Frames {
				frames = append(frames, renderFrame(frame))
			}
		}
	}
	return frames
}

func renderFrame(frame stackFrame) string {
	filename := frame.Filename
	if filename == "" {
		filename = "unknown"
	}
	function := frame.Function
	if function == "" {
		function = "unknown"
	}
	lineNo := frame.LineNo.String()
	if lineNo == "" {
		lineNo = "?"
	}

	rendered := fmt.Sprintf("%s:%s in %s()", filename, lineNo, function)
	if code := middleContextLine(frame.Context); code != "" {
		rendered += " -> " + code
	}
	return rendered
}

// middleContextLine returns the trimmed source line of the middle
// context entry. Context is a list of [lineNumber, sourceLine] pairs
// with the failing line in the middle.
func middleContextLine(context [][]interface{}) string {
	if len(context) == 0 {
		return ""
	}
	middle := context[len(context)/2]
	if len(middle) < 2 {
		return ""
	}
	line, ok := middle[1].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(line)
}

// Breadcrumbs renders every breadcrumb from every breadcrumbs entry,
// oldest first. Breadcrumbs with no message fall back to their first
// three structured data pairs.
func (e Event) Breadcrumbs() []string {
	var crumbs []string
	for _, entry := range e.detail.Entries {
		if entry.Type != "breadcrumbs" {
			continue
		}
		for _, rawValue := range entry.Data.Values {
			var crumb breadcrumbValue
			_ = json.Unmarshal(rawValue, &crumb)
			crumbs = append(crumbs, renderBreadcrumb(crumb))
		}
	}
	return crumbs
}

func renderBreadcrumb(crumb breadcrumbValue) string {
	level := "info"
	if crumb.Level != nil {
		level = *crumb.Level
	}

	if crumb.Message != "" {
		return fmt.Sprintf("[%s] %s: %s", level, crumb.Category, crumb.Message)
	}

	if pairs := orderedPairs(crumb.Data, 3); len(pairs) > 0 {
		return fmt.Sprintf("[%s] %s: %s", level, crumb.Category, strings.Join(pairs, ", "))
	}
	return fmt.Sprintf("[%s] %s", level, crumb.Category)
}

// orderedPairs renders up to limit "k=v" pairs from a JSON object,
// preserving the key order of the document. Non-object input yields
// nil.
func orderedPairs(raw json.RawMessage, limit int) []string {
	if len(raw) == 0 {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil
	}

	var pairs []string
	for dec.More() && len(pairs) < limit {
		keyTok, err := dec.Token()
		if err != nil {
			return pairs
		}
		key, ok := keyTok.(string)
		if !ok {
			return pairs
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return pairs
		}
		pairs = append(pairs, fmt.Sprintf("%s=%v", key, value))
	}
	return pairs
}

// ContextTags renders up to the first four whitelisted tags as
// "key=value". Only environment, release, browser and os are relevant
// context for triage.
func (e Event) ContextTags() []string {
	var rendered []string
	for _, tag := range e.detail.Tags {
		switch tag.Key {
		case "environment", "release", "browser", "os":
			rendered = append(rendered, tag.Key+"="+tag.Value)
			if len(rendered) == 4 {
				return rendered
			}
		}
	}
	return rendered
}
