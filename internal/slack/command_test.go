package slack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	t.Run("well-formed command", func(t *testing.T) {
		cmd, err := ParseCommand("User can't checkout | 2025-01-19T14:30:00Z | usr_abc123")
		require.NoError(t, err)
		assert.Equal(t, "User can't checkout", cmd.Description)
		assert.Equal(t, "2025-01-19T14:30:00Z", cmd.Timestamp)
		assert.Equal(t, "usr_abc123", cmd.CustomerID)
	})

	t.Run("extra whitespace is trimmed", func(t *testing.T) {
		cmd, err := ParseCommand("  payment fails  |  2025-01-19T14:30:00Z  |  cus_9  ")
		require.NoError(t, err)
		assert.Equal(t, "payment fails", cmd.Description)
		assert.Equal(t, "cus_9", cmd.CustomerID)
	})

	tests := []struct {
		name    string
		text    string
		wantErr string
	}{
		{
			name:    "too few parts",
			text:    "just a description",
			wantErr: "Invalid command format",
		},
		{
			name:    "too many parts",
			text:    "a | b | c | d",
			wantErr: "Invalid command format",
		},
		{
			name:    "empty description",
			text:    " | 2025-01-19T14:30:00Z | cus_1",
			wantErr: "Description cannot be empty",
		},
		{
			name:    "empty timestamp",
			text:    "desc |  | cus_1",
			wantErr: "Timestamp cannot be empty",
		},
		{
			name:    "empty customer id",
			text:    "desc | 2025-01-19T14:30:00Z | ",
			wantErr: "Customer ID cannot be empty",
		},
		{
			name:    "empty text",
			text:    "",
			wantErr: "Invalid command format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCommand(tt.text)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
