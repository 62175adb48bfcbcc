package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

const (
	schemasURI      = "tibero://schemas"
	schemaURIPrefix = "tibero://schema/"
)

// registerResources adds the read-only resources agents can load into
// their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// tibero://schemas: every schema visible to the connected user
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			schemasURI,
			"Tibero Schemas",
			mcp.WithResourceDescription("Names of the schemas visible to the connected Tibero account."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSchemasResource,
	)

	// -------------------------------------------------------------------
	// tibero://schema/{schema}: full reflection of one schema (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			schemaURIPrefix+"{schema}",
			"Tibero Schema",
			mcp.WithTemplateDescription(
				"Full reflection of a schema: tables, views and materialized views "+
					"with columns, keys, indexes and comments.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleSchemaResource,
	)
}

func (s *MCPServer) handleSchemasResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	in, err := s.inspector()
	if err != nil {
		return nil, err
	}
	names, err := in.GetSchemaNames(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	return jsonResource(schemasURI, names)
}

// handleSchemaResource returns the full reflection of the schema named by
// the URI.
func (s *MCPServer) handleSchemaResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	name := strings.TrimPrefix(uri, schemaURIPrefix)
	if name == "" || name == uri || strings.Contains(name, "/") {
		return nil, fmt.Errorf("invalid schema URI %q: expected %s{schema}", uri, schemaURIPrefix)
	}

	in, err := s.inspector()
	if err != nil {
		return nil, err
	}
	schema, err := in.ReflectSchema(ctx, dialect.ReflectOptions{Schema: name, Kind: model.KindAny})
	if err != nil {
		return nil, fmt.Errorf("failed to reflect schema %q: %w", name, err)
	}
	return jsonResource(uri, schema)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
