package mcp

import (
	"context"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/drift"
	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/query"
)

// registerTools registers all reflection tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery tools -----

	srv.AddTool(
		mcp.NewTool("tibero_list_schemas",
			mcp.WithDescription(
				"List the schemas (users) visible to the connected Tibero account. "+
					"Use this first to find the schema that owns the tables you need.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			dblinkParam(),
		),
		s.handleListSchemas,
	)

	srv.AddTool(
		mcp.NewTool("tibero_list_tables",
			mcp.WithDescription(
				"List the names of one kind of object in a schema. Tables of excluded "+
					"tablespaces are not listed. Kind temp lists the temporary tables of "+
					"the connected user's schema; kind dblink lists database links.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			schemaParam(),
			mcp.WithString("kind",
				mcp.Description("Object kind to list (default table)"),
				mcp.Enum("table", "view", "materialized_view", "sequence", "temp", "dblink"),
			),
			dblinkParam(),
		),
		s.handleListTables,
	)

	srv.AddTool(
		mcp.NewTool("tibero_object_exists",
			mcp.WithDescription(
				"Check whether a table, view or sequence exists without reflecting it.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			schemaParam(),
			mcp.WithString("name",
				mcp.Required(),
				mcp.Description("Name of the object"),
			),
			mcp.WithString("kind",
				mcp.Description("table (default, views included) or sequence"),
				mcp.Enum("table", "sequence"),
			),
			dblinkParam(),
		),
		s.handleObjectExists,
	)

	srv.AddTool(
		mcp.NewTool("tibero_describe_table",
			mcp.WithDescription(
				"Reflect one table, view or materialized view: columns with their "+
					"types, nullability, defaults, identity and computed settings, the "+
					"primary key, foreign keys, unique and check constraints, indexes "+
					"and comments.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			schemaParam(),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table, view or materialized view"),
			),
			mcp.WithBoolean("resolve_synonyms",
				mcp.Description("Follow a synonym named table to the object it points to"),
			),
			dblinkParam(),
		),
		s.handleDescribeTable,
	)

	srv.AddTool(
		mcp.NewTool("tibero_view_definition",
			mcp.WithDescription("Return the SELECT text a view or materialized view is defined by."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			schemaParam(),
			mcp.WithString("view",
				mcp.Required(),
				mcp.Description("Name of the view"),
			),
			mcp.WithBoolean("resolve_synonyms",
				mcp.Description("Follow a synonym named view to the object it points to"),
			),
			dblinkParam(),
		),
		s.handleViewDefinition,
	)

	// ----- SQL preview -----

	srv.AddTool(
		mcp.NewTool("tibero_preview_select",
			mcp.WithDescription(
				"Render the Tibero SELECT for a table with optional field selection, "+
					"filtering, ordering and pagination, and return the SQL with its "+
					"bind values. The statement is not executed.\n\n"+
					"Filter syntax:\n"+
					"  - Comparison: sal > 1000, job = 'CLERK', deptno <> 10\n"+
					"  - Logical: job = 'CLERK' AND (sal > 1000 OR comm IS NOT NULL)\n"+
					"  - IN: deptno IN (10, 20)\n"+
					"  - LIKE: ename LIKE 'S%'\n"+
					"  - BETWEEN: sal BETWEEN 1000 AND 2000\n"+
					"  - CONTAINS, STARTS WITH, ENDS WITH: ename CONTAINS 'MI'\n\n"+
					"Order syntax: 'sal DESC, ename' or '-sal,ename'",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			schemaParam(),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to select from"),
			),
			mcp.WithArray("fields",
				mcp.Description("Columns to select. Omit for all columns."),
				mcp.WithStringItems(),
			),
			mcp.WithString("filter",
				mcp.Description("Filter expression (e.g. \"job = 'CLERK' AND sal > 1000\")"),
			),
			mcp.WithString("order",
				mcp.Description("Order clause (e.g. \"sal DESC, ename\")"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of rows (default 25, max 1000)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Number of rows to skip"),
			),
		),
		s.handlePreviewSelect,
	)

	// ----- Drift -----

	if s.history != nil {
		srv.AddTool(
			mcp.NewTool("tibero_schema_drift",
				mcp.WithDescription(
					"Compare the newest stored snapshot of a schema with its live "+
						"reflection and list added, removed and changed tables, columns, "+
						"primary keys and foreign keys. Breaking changes are flagged.",
				),
				mcp.WithToolAnnotation(readOnlyAnnotation()),
				mcp.WithString("schema",
					mcp.Required(),
					mcp.Description("Schema the snapshot was taken of"),
				),
			),
			s.handleSchemaDrift,
		)
	}
}

func schemaParam() mcp.ToolOption {
	return mcp.WithString("schema",
		mcp.Description("Owning schema. Omit for the connected user's default schema."),
	)
}

func dblinkParam() mcp.ToolOption {
	return mcp.WithString("dblink",
		mcp.Description("Database link to reflect through, without the leading @"),
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

func (s *MCPServer) connector() (connector.Connector, error) {
	conn, err := s.registry.Get(s.service)
	if err != nil {
		return nil, errors.New("service " + s.service + " is not connected")
	}
	return conn, nil
}

func (s *MCPServer) inspector() (connector.Inspector, error) {
	conn, err := s.connector()
	if err != nil {
		return nil, err
	}
	return conn.Inspect(dialect.NewInfoCache()), nil
}

// handleListSchemas returns every schema visible to the connected user.
func (s *MCPServer) handleListSchemas(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	in, err := s.inspector()
	if err != nil {
		return toolError("%v", err)
	}
	names, err := in.GetSchemaNames(ctx, optionalString(request, "dblink"))
	if err != nil {
		return s.reflectionError("list schemas", err)
	}
	return successJSON(map[string]any{"schemas": names, "count": len(names)})
}

// handleListTables returns the names of one object kind in a schema.
func (s *MCPServer) handleListTables(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	in, err := s.inspector()
	if err != nil {
		return toolError("%v", err)
	}
	opts := reflectOptions(request)

	var names []string
	kind := optionalString(request, "kind")
	switch kind {
	case "", "table":
		kind = "table"
		names, err = in.GetTableNames(ctx, opts)
	case "view":
		names, err = in.GetViewNames(ctx, opts)
	case "materialized_view":
		names, err = in.GetMaterializedViewNames(ctx, opts)
	case "sequence":
		names, err = in.GetSequenceNames(ctx, opts)
	case "temp":
		names, err = in.GetTempTableNames(ctx)
	case "dblink":
		names, err = in.ListDBLinks(ctx, opts.DBLink)
	default:
		return toolError("Unknown kind %q. Use table, view, materialized_view, sequence, temp or dblink.", kind)
	}
	if err != nil {
		return s.reflectionError("list "+kind+"s", err)
	}
	return successJSON(map[string]any{
		"schema": opts.Schema,
		"kind":   kind,
		"names":  names,
		"count":  len(names),
	})
}

// handleObjectExists checks one table or sequence.
func (s *MCPServer) handleObjectExists(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := requireString(request, "name")
	if err != nil {
		return toolError("%v", err)
	}
	in, err := s.inspector()
	if err != nil {
		return toolError("%v", err)
	}
	opts := reflectOptions(request)

	var found bool
	kind := optionalString(request, "kind")
	switch kind {
	case "", "table":
		kind = "table"
		found, err = in.HasTable(ctx, name, opts)
	case "sequence":
		found, err = in.HasSequence(ctx, name, opts)
	default:
		return toolError("Unknown kind %q. Use table or sequence.", kind)
	}
	if err != nil {
		return s.reflectionError("check "+kind+" "+name, err)
	}
	return successJSON(map[string]any{
		"schema": opts.Schema,
		"name":   name,
		"kind":   kind,
		"exists": found,
	})
}

// handleDescribeTable returns the full reflection of one table.
func (s *MCPServer) handleDescribeTable(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	tableName, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	in, err := s.inspector()
	if err != nil {
		return toolError("%v", err)
	}
	opts := reflectOptions(request)
	opts.Kind = model.KindAny

	table, err := in.ReflectTable(ctx, tableName, opts)
	if err != nil {
		if errors.Is(err, dialect.ErrNoSuchTable) {
			// Available names help the agent correct itself.
			names, _ := in.GetTableNames(ctx, opts)
			views, _ := in.GetViewNames(ctx, opts)
			return toolError("%v\n\nAvailable tables: %v\nAvailable views: %v", err, names, views)
		}
		return s.reflectionError("describe "+tableName, err)
	}
	return successJSON(table)
}

// handleViewDefinition returns the defining text of a view.
func (s *MCPServer) handleViewDefinition(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	viewName, err := requireString(request, "view")
	if err != nil {
		return toolError("%v", err)
	}
	in, err := s.inspector()
	if err != nil {
		return toolError("%v", err)
	}
	opts := reflectOptions(request)

	def, err := in.GetViewDefinition(ctx, viewName, opts)
	if err != nil {
		if errors.Is(err, dialect.ErrNoSuchTable) {
			views, _ := in.GetViewNames(ctx, opts)
			return toolError("%v\n\nAvailable views: %v", err, views)
		}
		return s.reflectionError("view definition of "+viewName, err)
	}
	return successJSON(map[string]any{
		"schema":     opts.Schema,
		"name":       viewName,
		"definition": def,
	})
}

// handlePreviewSelect renders a SELECT without running it.
func (s *MCPServer) handlePreviewSelect(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	tableName, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}
	conn, err := s.connector()
	if err != nil {
		return toolError("%v", err)
	}

	req := connector.SelectRequest{
		Schema: optionalString(request, "schema"),
		Table:  tableName,
		Filter: optionalString(request, "filter"),
	}
	req.Limit, req.Offset = pageArgs(request)
	if fields := optionalStringSlice(request, "fields"); len(fields) > 0 {
		if req.Fields, err = query.ParseFields(strings.Join(fields, ",")); err != nil {
			return toolError("Invalid fields: %v", err)
		}
	}
	if req.Order, err = query.ParseOrder(optionalString(request, "order")); err != nil {
		return toolError("Invalid order clause: %v\n\n"+
			"Order syntax: column [ASC|DESC], ...\n"+
			"  Example: sal DESC, ename", err)
	}

	sqlStr, args, err := conn.BuildSelect(ctx, req)
	if err != nil {
		if req.Filter != "" && strings.HasPrefix(err.Error(), "filter") {
			return toolError("Invalid filter expression: %v\n\n"+
				"Filter syntax: column op value\n"+
				"  Operators: =, <>, !=, <, >, <=, >=, LIKE, IN, IS NULL, IS NOT NULL, BETWEEN, CONTAINS\n"+
				"  Logical: AND, OR, NOT\n"+
				"  Example: job = 'CLERK' AND sal > 1000", err)
		}
		return toolError("Failed to build select: %v", err)
	}
	if args == nil {
		args = []any{}
	}
	return successJSON(map[string]any{
		"sql":    sqlStr,
		"args":   args,
		"limit":  req.Limit,
		"offset": req.Offset,
	})
}

// handleSchemaDrift diffs the newest stored snapshot against the live
// schema.
func (s *MCPServer) handleSchemaDrift(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	schema, err := requireString(request, "schema")
	if err != nil {
		return toolError("%v", err)
	}
	snap, err := s.history.Store.Latest(ctx, s.history.Key, schema)
	if err != nil {
		if errors.Is(err, drift.ErrNotFound) {
			return toolError("No stored snapshot of %s. Run tibero snapshot --schema %s --save first.", schema, schema)
		}
		return toolError("Failed to load snapshot: %v", err)
	}

	in, err := s.inspector()
	if err != nil {
		return toolError("%v", err)
	}
	live, err := in.ReflectSchema(ctx, dialect.ReflectOptions{Schema: snap.Schema, Kind: model.KindAny})
	if err != nil {
		return s.reflectionError("reflect "+schema, err)
	}
	if live.Name == "" {
		live.Name = snap.Schema
	}
	return successJSON(drift.Diff(snap, live))
}

// reflectionError logs unexpected failures and returns them to the agent.
func (s *MCPServer) reflectionError(op string, err error) (*mcp.CallToolResult, error) {
	var argErr *dialect.ArgumentError
	if !errors.Is(err, dialect.ErrNoSuchTable) && !errors.As(err, &argErr) {
		s.logger.Error("reflection failed", zap.String("op", op), zap.Error(err))
	}
	return toolError("Failed to %s: %v", op, err)
}
