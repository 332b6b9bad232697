package sentry

import "time"

// timestampLayouts are tried in order. The RFC3339 layout covers both
// Z-suffixed and explicit-offset instants; the remaining layouts cover
// naive date-times and bare dates, which are treated as UTC.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 instant. Fractional seconds are
// accepted with any layout.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidTimestampError{Value: value}
}

// TimeWindow is a symmetric search window around a reported instant.
type TimeWindow struct {
	Center time.Time
	Start  time.Time
	End    time.Time
}

// NewTimeWindow parses the timestamp and derives a window of
// ±windowMinutes around it.
func NewTimeWindow(timestamp string, windowMinutes int) (TimeWindow, error) {
	center, err := ParseTimestamp(timestamp)
	if err != nil {
		return TimeWindow{}, err
	}
	delta := time.Duration(windowMinutes) * time.Minute
	return TimeWindow{
		Center: center,
		Start:  center.Add(-delta),
		End:    center.Add(delta),
	}, nil
}
