package openapi

import (
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/faucetdb/tibero/internal/model"
)

// Options controls the generated document.
type Options struct {
	Title   string
	BaseURL string
	// Secured adds the bearer JWT scheme the API is protected with.
	Secured bool
}

// GenerateSchemaSpec generates an OpenAPI 3.1 document of the reflection
// API for one reflected schema. Every table and view gets a component
// schema describing its rows, a reflection path and a select preview path.
func GenerateSchemaSpec(schema *model.Schema, opts Options) *openapi3.T {
	title := opts.Title
	if title == "" {
		title = "Tibero"
	}
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       fmt.Sprintf("%s %s schema", title, schema.Name),
			Description: fmt.Sprintf("Read-only reflection of the %s schema.", schema.Name),
			Version:     "1.0.0",
		},
	}
	if opts.BaseURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.BaseURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	if opts.Secured {
		doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
			Value: &openapi3.SecurityScheme{
				Type:         "http",
				Scheme:       "bearer",
				BearerFormat: "JWT",
			},
		}
		doc.Security = openapi3.SecurityRequirements{{"bearerAuth": {}}}
	}

	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()
	doc.Components.Schemas["NameList"] = nameListSchema()
	doc.Components.Schemas["SelectPreview"] = selectPreviewSchema()

	doc.Paths = openapi3.NewPaths()
	doc.Paths.Set("/api/v1/schemas", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"schemas"},
			Summary:     "List schemas",
			OperationID: "list_schemas",
			Parameters:  openapi3.Parameters{dblinkParameter()},
			Responses:   newResponses("200", "Schema names", openapi3.NewSchemaRef("#/components/schemas/NameList", nil)),
		},
	})
	doc.Paths.Set(fmt.Sprintf("/api/v1/schemas/%s/tables", schema.Name), &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"schemas"},
			Summary:     fmt.Sprintf("List objects of %s", schema.Name),
			OperationID: "list_tables",
			Parameters:  listTablesParameters(),
			Responses:   newResponses("200", "Object names", openapi3.NewSchemaRef("#/components/schemas/NameList", nil)),
		},
	})

	for _, table := range schema.Tables {
		addTablePaths(doc, schema.Name, table, true)
	}
	for _, view := range schema.Views {
		addTablePaths(doc, schema.Name, view, false)
		addViewDefinitionPath(doc, schema.Name, view)
	}
	return doc
}

// addTablePaths registers the row schema and the reflection and select
// preview paths of one object.
func addTablePaths(doc *openapi3.T, schemaName string, table model.Table, lockable bool) {
	tablePath := fmt.Sprintf("/api/v1/schemas/%s/tables/%s", schemaName, table.Name)
	tag := table.Name

	name := sanitizeSchemaName(schemaName, table.Name)
	doc.Components.Schemas[name] = tableToSchema(table)

	doc.Paths.Set(tablePath, &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("Reflect %s", table.Name),
			Description: fmt.Sprintf("Columns, keys, indexes, constraints and comment of %s. Rows look like #/components/schemas/%s.", table.Name, name),
			OperationID: fmt.Sprintf("reflect_%s", table.Name),
			Parameters: openapi3.Parameters{
				dblinkParameter(),
				boolParameter("resolve_synonyms", "Follow a synonym of this name to its table."),
				boolParameter("include_all", "Include system generated indexes and constraints."),
			},
			Responses: newResponses("200", fmt.Sprintf("Reflection of %s", table.Name), &openapi3.SchemaRef{
				Value: &openapi3.Schema{Type: &openapi3.Types{"object"}},
			}),
		},
	})

	doc.Paths.Set(tablePath+"/select", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{tag},
			Summary:     fmt.Sprintf("Preview a SELECT of %s", table.Name),
			Description: fmt.Sprintf("Render the Tibero SELECT for %s with its binds, without running it.", table.Name),
			OperationID: fmt.Sprintf("select_%s", table.Name),
			Parameters:  selectParameters(table, lockable),
			Responses:   newResponses("200", "Rendered statement", openapi3.NewSchemaRef("#/components/schemas/SelectPreview", nil)),
		},
	})
}

func addViewDefinitionPath(doc *openapi3.T, schemaName string, view model.Table) {
	doc.Paths.Set(fmt.Sprintf("/api/v1/schemas/%s/views/%s/definition", schemaName, view.Name), &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{view.Name},
			Summary:     fmt.Sprintf("Get the definition of %s", view.Name),
			OperationID: fmt.Sprintf("definition_%s", view.Name),
			Parameters:  openapi3.Parameters{dblinkParameter()},
			Responses: newResponses("200", "View query text", &openapi3.SchemaRef{
				Value: &openapi3.Schema{
					Type: &openapi3.Types{"object"},
					Properties: openapi3.Schemas{
						"schema":     stringProperty(),
						"name":       stringProperty(),
						"definition": stringProperty(),
					},
				},
			}),
		},
	})
}

// tableToSchema describes one row of table. Columns that are NOT NULL and
// have no default, identity or expression are required.
func tableToSchema(table model.Table) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	var required []string
	for _, col := range table.Columns {
		s := columnTypeSchema(MapColumn(col))
		if col.Comment != nil {
			s.Description = *col.Comment
		}
		if col.Nullable {
			s.Nullable = true
		}
		if col.Identity != nil || col.Computed != nil {
			s.ReadOnly = true
		}
		if col.Default != nil {
			s.Default = strings.TrimSpace(*col.Default)
		}
		if col.DataType != "" {
			s.Extensions = map[string]any{"x-tibero-type": col.DataType}
		}
		props[col.Name] = &openapi3.SchemaRef{Value: s}

		if !col.Nullable && col.Default == nil && col.Identity == nil && col.Computed == nil {
			required = append(required, col.Name)
		}
	}

	schema := &openapi3.Schema{
		Type:       &openapi3.Types{"object"},
		Properties: props,
		Required:   required,
		Extensions: map[string]any{"x-tibero-kind": table.Kind},
	}
	if table.Comment.Text != nil {
		schema.Description = *table.Comment.Text
	}
	if pk := table.PrimaryKey.ConstrainedColumns; len(pk) > 0 {
		schema.Extensions["x-primary-key"] = pk
	}
	return &openapi3.SchemaRef{Value: schema}
}

func columnTypeSchema(m TypeMapping) *openapi3.Schema {
	s := &openapi3.Schema{
		Type: &openapi3.Types{m.Type},
	}
	if m.Format != "" {
		s.Format = m.Format
	}
	return s
}

// ─── Parameter Builders ─────────────────────────────────────────────────────

func dblinkParameter() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter("dblink").
			WithDescription("Reflect through this database link.").
			WithSchema(openapi3.NewStringSchema()),
	}
}

func boolParameter(name, description string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter(name).
			WithDescription(description + ` ("true" to enable)`).
			WithSchema(openapi3.NewBoolSchema()),
	}
}

func listTablesParameters() openapi3.Parameters {
	kind := openapi3.NewStringSchema()
	kind.Enum = []any{"table", "view", "materialized_view", "sequence"}
	return openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("kind").
				WithDescription("Object kind to list; defaults to table.").
				WithSchema(kind),
		},
		dblinkParameter(),
	}
}

// selectParameters documents the select preview query parameters. The
// columns parameter lists the columns of table.
func selectParameters(table model.Table, lockable bool) openapi3.Parameters {
	columns := make([]any, 0, len(table.Columns))
	for _, c := range table.Columns {
		columns = append(columns, c.Name)
	}
	columnList := openapi3.NewStringSchema()
	columnList.Description = "Comma-separated subset of the columns."
	if len(columns) > 0 {
		columnList.Extensions = map[string]any{"x-columns": columns}
	}

	params := openapi3.Parameters{
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("columns").
				WithDescription("Comma-separated list of columns to select; all when omitted.").
				WithSchema(columnList),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("filter").
				WithDescription("Filter expression (e.g. \"sal > 1000\", \"job IN ('CLERK','ANALYST')\", \"ename STARTS WITH 'K'\").").
				WithSchema(openapi3.NewStringSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("order").
				WithDescription("Sort order (e.g. \"sal DESC, ename\" or \"-sal,ename\").").
				WithSchema(openapi3.NewStringSchema()),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("limit").
				WithDescription("Maximum number of rows.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
		&openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter("offset").
				WithDescription("Number of rows to skip.").
				WithSchema(&openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}),
		},
	}
	if lockable {
		params = append(params,
			&openapi3.ParameterRef{
				Value: openapi3.NewQueryParameter("for_update_of").
					WithDescription("Lock the selected rows; an empty value locks without OF.").
					WithSchema(openapi3.NewStringSchema()),
			},
			boolParameter("nowait", "Fail instead of waiting for locked rows."),
		)
	}
	return params
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// newResponses builds a Responses map with a success response and the
// error responses every endpoint can return.
func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set(statusCode, &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)
	for _, e := range []struct{ code, desc string }{
		{"400", "Bad request"},
		{"404", "Not found"},
		{"409", "Ambiguous synonym"},
		{"503", "Service not connected"},
	} {
		desc := e.desc
		responses.Set(e.code, &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

func stringProperty() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
}

func errorResponseSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": stringProperty(),
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}
}

func nameListSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"resource": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: stringProperty(),
					},
				},
				"meta": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"count":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"schema":  stringProperty(),
							"took_ms": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}, Format: "double"}},
						},
					},
				},
			},
		},
	}
}

func selectPreviewSchema() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"sql": stringProperty(),
				"args": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{}},
					},
				},
			},
		},
	}
}

// ─── Naming Helpers ─────────────────────────────────────────────────────────

// sanitizeSchemaName creates a valid OpenAPI component schema name from
// schema and table names.
func sanitizeSchemaName(schemaName, tableName string) string {
	s := capitalize(tableName)
	if schemaName != "" {
		s = capitalize(schemaName) + "_" + s
	}
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

// capitalize returns a string with its first character uppercased.
func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
