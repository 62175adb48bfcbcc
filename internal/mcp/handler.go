package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/faucetdb/tibero/internal/dialect"
)

const (
	defaultPreviewLimit = 25
	maxPreviewLimit     = 1000
)

// requireString returns a required string argument, with an error naming
// the missing parameter.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil || val == "" {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

func optionalStringSlice(request mcp.CallToolRequest, key string) []string {
	return request.GetStringSlice(key, nil)
}

// reflectOptions reads the schema, dblink and resolve_synonyms arguments
// shared by the reflection tools.
func reflectOptions(request mcp.CallToolRequest) dialect.ReflectOptions {
	return dialect.ReflectOptions{
		Schema:          optionalString(request, "schema"),
		DBLink:          optionalString(request, "dblink"),
		ResolveSynonyms: request.GetBool("resolve_synonyms", false),
	}
}

// pageArgs returns the preview limit, clamped to 1..maxPreviewLimit, and a
// non-negative offset.
func pageArgs(request mcp.CallToolRequest) (limit, offset int) {
	limit = clamp(request.GetInt("limit", defaultPreviewLimit), 1, maxPreviewLimit)
	offset = max(request.GetInt("offset", 0), 0)
	return limit, offset
}

func clamp(val, lo, hi int) int {
	return min(max(val, lo), hi)
}

// successJSON returns data as indented JSON text.
func successJSON(data any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError reports a failure to the client as a result, leaving the
// session open so the agent can retry with other arguments.
func toolError(format string, args ...any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
