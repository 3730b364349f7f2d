package mcptool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionInput_Empty(t *testing.T) {
	result, err := ParseActionInput("")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result)
}

func TestParseActionInput_Whitespace(t *testing.T) {
	result, err := ParseActionInput("   \n  ")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, result)
}

func TestParseActionInput_JSON(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]any
	}{
		{
			name:  "json object",
			input: `{"site": "dc1", "limit": 10}`,
			expected: map[string]any{
				"site":  "dc1",
				"limit": float64(10),
			},
		},
		{
			name:  "json object with nested filter",
			input: `{"filter": {"role": "switch"}, "site": "dc1"}`,
			expected: map[string]any{
				"filter": map[string]any{"role": "switch"},
				"site":   "dc1",
			},
		},
		{
			name:  "json array wraps in input",
			input: `["rack-12", "rack-13"]`,
			expected: map[string]any{
				"input": []any{"rack-12", "rack-13"},
			},
		},
		{
			name:  "json string wraps in input",
			input: `"device-42"`,
			expected: map[string]any{
				"input": "device-42",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseActionInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseActionInput_YAML(t *testing.T) {
	input := "site: dc1\ntags:\n  - core\n  - edge\n"
	result, err := ParseActionInput(input)
	require.NoError(t, err)
	assert.Equal(t, "dc1", result["site"])
	assert.Equal(t, []any{"core", "edge"}, result["tags"])
}

func TestParseActionInput_KeyValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]any
	}{
		{
			name:  "colon separated",
			input: "site: dc1, limit: 25",
			expected: map[string]any{
				"site":  "dc1",
				"limit": int64(25),
			},
		},
		{
			name:  "equals separated",
			input: "site=dc1, active=true",
			expected: map[string]any{
				"site":   "dc1",
				"active": true,
			},
		},
		{
			name:  "newline separated",
			input: "site: dc1\nrole: router",
			expected: map[string]any{
				"site": "dc1",
				"role": "router",
			},
		},
		{
			name:  "null coerces to nil",
			input: "parent: null",
			expected: map[string]any{
				"parent": nil,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseActionInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseActionInput_RawStringFallback(t *testing.T) {
	result, err := ParseActionInput("just looking up device-42")
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"input": "just looking up device-42"}, result)
}

func TestCoerceValue(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected any
	}{
		{"true", "true", true},
		{"false", "false", false},
		{"null", "null", nil},
		{"none", "none", nil},
		{"integer", "42", int64(42)},
		{"float", "3.14", 3.14},
		{"plain string", "dc1", "dc1"},
		{"nan rejected as string", "NaN", "NaN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, coerceValue(tt.input))
		})
	}
}
