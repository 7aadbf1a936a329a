package jsonutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractObject(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
		ok   bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"leading prose", `here you go: {"a":1} hope it helps`, `{"a":1}`, true},
		{"fenced with tag", "```json\n{\"a\":1}\n```", `{"a":1}`, true},
		{"fenced without tag", "```\n{\"a\":1}\n```", `{"a":1}`, true},
		{"nested objects", `{"a":{"b":{"c":2}},"d":3}`, `{"a":{"b":{"c":2}},"d":3}`, true},
		{"braces inside strings", `{"text":"use { and } freely","n":1}`, `{"text":"use { and } freely","n":1}`, true},
		{"escaped quote in string", `{"text":"she said \"hi\" {","n":1}`, `{"text":"she said \"hi\" {","n":1}`, true},
		{"first of two objects", `{"a":1} {"b":2}`, `{"a":1}`, true},
		{"unbalanced", `{"a":1`, "", false},
		{"no object", "plain refusal text", "", false},
		{"empty", "", "", false},
		{"whitespace only", "   \n\t ", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractObject(tc.raw)
			require.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExtractObjectFenceWithSurroundingProse(t *testing.T) {
	raw := "My analysis follows.\n```json\n{\"decision\": \"REJECT\"}\n```\nLet me know."
	got, ok := ExtractObject(raw)
	require.True(t, ok)
	assert.JSONEq(t, `{"decision":"REJECT"}`, got)
}
