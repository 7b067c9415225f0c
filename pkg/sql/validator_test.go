package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  error
	}{
		{
			name:     "simple statement",
			input:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "trailing semicolon stripped",
			input:    "SELECT 1;",
			expected: "SELECT 1",
		},
		{
			name:     "trailing semicolon with whitespace",
			input:    "SELECT 1 ;  \n",
			expected: "SELECT 1",
		},
		{
			name:    "multiple statements rejected",
			input:   "SELECT 1; DROP TABLE users",
			wantErr: ErrMultipleStatements,
		},
		{
			name:     "semicolon inside single-quoted literal",
			input:    "SELECT ';' AS sep FROM t",
			expected: "SELECT ';' AS sep FROM t",
		},
		{
			name:     "semicolon inside double-quoted identifier",
			input:    `SELECT "a;b" FROM t`,
			expected: `SELECT "a;b" FROM t`,
		},
		{
			name:     "doubled quote escape inside literal",
			input:    "SELECT 'it''s; fine' FROM t",
			expected: "SELECT 'it''s; fine' FROM t",
		},
		{
			name:     "empty input",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ValidateAndNormalize(tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, result.Error, tt.wantErr)
				return
			}
			require.NoError(t, result.Error)
			assert.Equal(t, tt.expected, result.NormalizedSQL)
		})
	}
}
