package slack

import (
	"errors"
	"strings"
)

// Command is a parsed /loglens invocation.
type Command struct {
	Description string
	Timestamp   string
	CustomerID  string
}

// ParseCommand splits the slash-command text into its three parts.
// Expected format:
//
//	/loglens [description] | [timestamp] | [customer_id]
//
// Exactly three pipe-separated parts, each non-empty after trimming.
// The description may not contain a pipe character; the split is not
// escaped.
func ParseCommand(text string) (Command, error) {
	parts := strings.Split(text, "|")
	if len(parts) != 3 {
		return Command{}, errors.New("Invalid command format. Use: /loglens [description] | [timestamp] | [customer_id]")
	}

	description := strings.TrimSpace(parts[0])
	timestamp := strings.TrimSpace(parts[1])
	customerID := strings.TrimSpace(parts[2])

	if description == "" {
		return Command{}, errors.New("Description cannot be empty")
	}
	if timestamp == "" {
		return Command{}, errors.New("Timestamp cannot be empty")
	}
	if customerID == "" {
		return Command{}, errors.New("Customer ID cannot be empty")
	}

	return Command{
		Description: description,
		Timestamp:   timestamp,
		CustomerID:  customerID,
	}, nil
}
