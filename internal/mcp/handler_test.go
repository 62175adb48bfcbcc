package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageArgs(t *testing.T) {
	tests := []struct {
		name       string
		args       map[string]any
		wantLimit  int
		wantOffset int
	}{
		{"defaults", nil, 25, 0},
		{"in range", map[string]any{"limit": 10, "offset": 20}, 10, 20},
		{"json numbers", map[string]any{"limit": 50.0, "offset": 5.0}, 50, 5},
		{"limit above max", map[string]any{"limit": 5000}, 1000, 0},
		{"limit below one", map[string]any{"limit": 0}, 1, 0},
		{"negative offset", map[string]any{"offset": -3}, 25, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := pageArgs(call("tibero_preview_select", tt.args))
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestRequireString(t *testing.T) {
	v, err := requireString(call("x", map[string]any{"table": "EMP"}), "table")
	require.NoError(t, err)
	assert.Equal(t, "EMP", v)

	_, err = requireString(call("x", nil), "table")
	assert.EqualError(t, err, `missing required parameter "table"`)

	_, err = requireString(call("x", map[string]any{"table": ""}), "table")
	assert.Error(t, err)
}

func TestReflectOptions(t *testing.T) {
	opts := reflectOptions(call("x", map[string]any{
		"schema":           "scott",
		"dblink":           "hq",
		"resolve_synonyms": true,
	}))
	assert.Equal(t, "scott", opts.Schema)
	assert.Equal(t, "hq", opts.DBLink)
	assert.True(t, opts.ResolveSynonyms)

	assert.False(t, reflectOptions(call("x", nil)).ResolveSynonyms)
}

func TestReadOnlyAnnotation(t *testing.T) {
	ann := readOnlyAnnotation()
	require.NotNil(t, ann.ReadOnlyHint)
	require.NotNil(t, ann.IdempotentHint)
	assert.True(t, *ann.ReadOnlyHint)
	assert.True(t, *ann.IdempotentHint)
	assert.NotSame(t, boolPtr(true), boolPtr(true))
}
