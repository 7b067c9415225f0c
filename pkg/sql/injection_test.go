package sql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckInputForInjection(t *testing.T) {
	t.Run("clean string value", func(t *testing.T) {
		result := CheckInputForInjection("customer_id", "12345")
		assert.Nil(t, result)
	})

	t.Run("injection attempt detected", func(t *testing.T) {
		result := CheckInputForInjection("search", "'; DROP TABLE users--")
		require.NotNil(t, result)
		assert.True(t, result.IsSQLi)
		assert.Equal(t, "search", result.InputName)
		assert.NotEmpty(t, result.Fingerprint)
	})

	t.Run("non-string values are skipped", func(t *testing.T) {
		assert.Nil(t, CheckInputForInjection("limit", 100))
		assert.Nil(t, CheckInputForInjection("flag", true))
		assert.Nil(t, CheckInputForInjection("none", nil))
	})
}

func TestCheckInputs(t *testing.T) {
	inputs := map[string]any{
		"customer_id": "12345",
		"search":      "1' OR '1'='1",
		"limit":       100,
	}

	results := CheckInputs(inputs)
	require.Len(t, results, 1)
	assert.Equal(t, "search", results[0].InputName)
	assert.True(t, results[0].IsSQLi)
}
