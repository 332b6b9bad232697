package sentry

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func testNarrator() *Narrator {
	return NewNarrator("https://sentry.io", "acme", "storefront")
}

func TestNarrateEmpty(t *testing.T) {
	got := testNarrator().Narrate(nil)
	if got != "No Sentry events found." {
		t.Errorf("Narrate(nil) = %q", got)
	}
	if links := testNarrator().Links(nil); len(links) != 0 {
		t.Errorf("Links(nil) = %v, want empty", links)
	}
}

func TestNarrateSingleEvent(t *testing.T) {
	src := `{
		"id": "e1abc",
		"dateCreated": "2024-01-15T10:30:00Z",
		"title": "PaymentTokenExpiredError",
		"metadata": {"type": "PaymentTokenExpiredError", "value": "token expired 300s ago"},
		"entries": [
			{"type": "exception", "data": {"values": [
				{"stacktrace": {"frames": [
					{"filename": "payment.py", "function": "charge", "lineNo": 42}
				]}}
			]}},
			{"type": "breadcrumbs", "data": {"values": [
				{"category": "ui.click", "message": "clicked pay", "level": "info"}
			]}}
		],
		"tags": [{"key": "environment", "value": "production"}, {"key": "os", "value": "iOS"}]
	}`

	var ev Event
	if err := json.Unmarshal([]byte(src), &ev); err != nil {
		t.Fatal(err)
	}

	got := testNarrator().Narrate([]Event{ev})
	want := strings.Join([]string{
		"Event 1:",
		"- Time: 2024-01-15T10:30:00Z",
		"- Error: PaymentTokenExpiredError",
		`- Message: "token expired 300s ago"`,
		"- Stack Trace:",
		"  payment.py:42 in charge()",
		"- Breadcrumbs (user actions leading to error):",
		"  [info] ui.click: clicked pay",
		"- Context: environment=production, os=iOS",
		"- Link: https://sentry.io/organizations/acme/issues/?project=storefront&query=e1abc",
	}, "\n")

	if got != want {
		t.Errorf("Narrate mismatch\ngot:\n%s\n\nwant:\n%s", got, want)
	}
}

func TestNarrateFrameTruncation(t *testing.T) {
	frames := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		frames = append(frames, fmt.Sprintf(`{"filename":"f%d.py","function":"fn%d","lineNo":%d}`, i, i, i))
	}
	src := fmt.Sprintf(`{"entries":[{"type":"exception","data":{"values":[{"stacktrace":{"frames":[%s]}}]}}]}`,
		strings.Join(frames, ","))

	var ev Event
	if err := json.Unmarshal([]byte(src), &ev); err != nil {
		t.Fatal(err)
	}

	got := testNarrator().Narrate([]Event{ev})

	for i := 0; i < 5; i++ {
		if !strings.Contains(got, fmt.Sprintf("f%d.py:%d in fn%d()", i, i, i)) {
			t.Errorf("missing frame %d in narration:\n%s", i, got)
		}
	}
	for i := 5; i < 10; i++ {
		if strings.Contains(got, fmt.Sprintf("f%d.py", i)) {
			t.Errorf("frame %d should be truncated:\n%s", i, got)
		}
	}
	if !strings.Contains(got, "... (5 more frames)") {
		t.Errorf("missing truncation suffix:\n%s", got)
	}
}

func TestNarrateBreadcrumbTruncation(t *testing.T) {
	crumbs := make([]string, 0, 10)
	for i := 0; i < 10; i++ {
		crumbs = append(crumbs, fmt.Sprintf(`{"category":"step","message":"action %d"}`, i))
	}
	src := fmt.Sprintf(`{"entries":[{"type":"breadcrumbs","data":{"values":[%s]}}]}`,
		strings.Join(crumbs, ","))

	var ev Event
	if err := json.Unmarshal([]byte(src), &ev); err != nil {
		t.Fatal(err)
	}

	got := testNarrator().Narrate([]Event{ev})

	for i := 5; i < 10; i++ {
		if !strings.Contains(got, fmt.Sprintf("action %d", i)) {
			t.Errorf("missing breadcrumb %d (last five expected):\n%s", i, got)
		}
	}
	for i := 0; i < 5; i++ {
		if strings.Contains(got, fmt.Sprintf("action %d", i)) {
			t.Errorf("breadcrumb %d should be dropped (only last five kept):\n%s", i, got)
		}
	}
	if strings.Contains(got, "more frames") {
		t.Errorf("breadcrumbs must not carry a truncation suffix:\n%s", got)
	}
}

func TestNarrateMultipleEventsBlankLineSeparated(t *testing.T) {
	var ev1, ev2 Event
	if err := json.Unmarshal([]byte(`{"title":"first"}`), &ev1); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"title":"second"}`), &ev2); err != nil {
		t.Fatal(err)
	}

	got := testNarrator().Narrate([]Event{ev1, ev2})

	if !strings.Contains(got, "Event 1:") || !strings.Contains(got, "Event 2:") {
		t.Fatalf("missing event headers:\n%s", got)
	}
	if !strings.Contains(got, "\n\nEvent 2:") {
		t.Errorf("events not separated by a blank line:\n%s", got)
	}
}

func TestNarrateOmitsAbsentSections(t *testing.T) {
	var ev Event
	if err := json.Unmarshal([]byte(`{}`), &ev); err != nil {
		t.Fatal(err)
	}

	got := testNarrator().Narrate([]Event{ev})
	want := "Event 1:\n- Time: Unknown\n- Error: Unknown"

	if got != want {
		t.Errorf("Narrate = %q, want %q", got, want)
	}
}

func TestEventLinkFormat(t *testing.T) {
	n := NewNarrator("https://sentry.example.com/", "my-org", "my-proj")

	got := n.EventLink("deadbeef")
	want := "https://sentry.example.com/organizations/my-org/issues/?project=my-proj&query=deadbeef"
	if got != want {
		t.Errorf("EventLink = %q, want %q", got, want)
	}
}

func TestLinksSkipEventsWithoutID(t *testing.T) {
	var withID, withoutID Event
	if err := json.Unmarshal([]byte(`{"id":"e1"}`), &withID); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal([]byte(`{"title":"no id"}`), &withoutID); err != nil {
		t.Fatal(err)
	}

	links := testNarrator().Links([]Event{withID, withoutID, withID})
	if len(links) != 2 {
		t.Fatalf("Links = %v, want 2 entries", links)
	}
	for _, link := range links {
		if !strings.Contains(link, "query=e1") {
			t.Errorf("link %q missing event id", link)
		}
	}
}
