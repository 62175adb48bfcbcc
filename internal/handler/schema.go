package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// SchemaHandler serves read-only reflection of one connected service.
type SchemaHandler struct {
	registry *connector.Registry
	service  string
	logger   *zap.Logger
}

// NewSchemaHandler creates a SchemaHandler for the named service.
func NewSchemaHandler(registry *connector.Registry, service string, logger *zap.Logger) *SchemaHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchemaHandler{registry: registry, service: service, logger: logger}
}

// ViewDefinition is the body of the view definition endpoint.
type ViewDefinition struct {
	Schema     string `json:"schema"`
	Name       string `json:"name"`
	Definition string `json:"definition"`
}

// ObjectExistence answers an existence check.
type ObjectExistence struct {
	Schema string `json:"schema"`
	Name   string `json:"name"`
	Kind   string `json:"kind"`
	Exists bool   `json:"exists"`
}

// inspector starts a reflection pass for one request.
func (h *SchemaHandler) inspector(w http.ResponseWriter) (connector.Inspector, bool) {
	conn, err := h.registry.Get(h.service)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Service not connected: "+h.service)
		return nil, false
	}
	return conn.Inspect(dialect.NewInfoCache()), true
}

// reflectOptions reads the options shared by every endpoint: the schema
// path parameter and the dblink and resolve_synonyms query parameters.
func reflectOptions(r *http.Request) dialect.ReflectOptions {
	return dialect.ReflectOptions{
		Schema:          chi.URLParam(r, "schema"),
		DBLink:          queryString(r, "dblink"),
		ResolveSynonyms: queryBool(r, "resolve_synonyms"),
	}
}

func (h *SchemaHandler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := classifyError(err)
	if status >= 500 {
		h.logger.Error(msg, zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeError(w, status, msg+": "+err.Error())
}

// ListSchemas returns every schema visible to the connected user.
// GET /api/v1/schemas
func (h *SchemaHandler) ListSchemas(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w)
	if !ok {
		return
	}
	start := time.Now()
	names, err := in.GetSchemaNames(r.Context(), queryString(r, "dblink"))
	if err != nil {
		h.fail(w, r, "Failed to list schemas", err)
		return
	}
	writeJSON(w, http.StatusOK, nameList(names, "", start))
}

// ListTables returns the names of one object kind in a schema. The kind
// query parameter selects table (default), view, materialized_view,
// sequence, temp or dblink. Temporary tables are those of the connected
// user's schema.
// GET /api/v1/schemas/{schema}/tables
func (h *SchemaHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w)
	if !ok {
		return
	}
	opts := reflectOptions(r)
	start := time.Now()

	var (
		names []string
		err   error
	)
	switch kind := queryString(r, "kind"); kind {
	case "", "table":
		names, err = in.GetTableNames(r.Context(), opts)
	case "view":
		names, err = in.GetViewNames(r.Context(), opts)
	case "materialized_view", "mview":
		names, err = in.GetMaterializedViewNames(r.Context(), opts)
	case "sequence":
		names, err = in.GetSequenceNames(r.Context(), opts)
	case "temp":
		names, err = in.GetTempTableNames(r.Context())
	case "dblink":
		names, err = in.ListDBLinks(r.Context(), opts.DBLink)
	default:
		writeError(w, http.StatusBadRequest, "Unknown kind: "+kind,
			map[string]any{"allowed": []string{"table", "view", "materialized_view", "sequence", "temp", "dblink"}})
		return
	}
	if err != nil {
		h.fail(w, r, "Failed to list tables", err)
		return
	}
	writeJSON(w, http.StatusOK, nameList(names, opts.Schema, start))
}

// GetTable returns the full reflection of one table, view or materialized
// view.
// GET /api/v1/schemas/{schema}/tables/{table}
func (h *SchemaHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w)
	if !ok {
		return
	}
	opts := reflectOptions(r)
	opts.IncludeAll = queryBool(r, "include_all")

	table, err := in.ReflectTable(r.Context(), chi.URLParam(r, "table"), opts)
	if err != nil {
		h.fail(w, r, "Failed to reflect table", err)
		return
	}
	writeJSON(w, http.StatusOK, table)
}

// GetViewDefinition returns the query text of a view.
// GET /api/v1/schemas/{schema}/views/{view}/definition
func (h *SchemaHandler) GetViewDefinition(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w)
	if !ok {
		return
	}
	opts := reflectOptions(r)
	name := chi.URLParam(r, "view")

	text, err := in.GetViewDefinition(r.Context(), name, opts)
	if err != nil {
		h.fail(w, r, "Failed to get view definition", err)
		return
	}
	writeJSON(w, http.StatusOK, ViewDefinition{Schema: opts.Schema, Name: name, Definition: text})
}

// ObjectExists reports whether a table (views included) or sequence
// exists. The kind query parameter is table (default) or sequence.
// GET /api/v1/schemas/{schema}/exists/{name}
func (h *SchemaHandler) ObjectExists(w http.ResponseWriter, r *http.Request) {
	in, ok := h.inspector(w)
	if !ok {
		return
	}
	opts := reflectOptions(r)
	name := chi.URLParam(r, "name")

	var (
		found bool
		err   error
	)
	kind := queryString(r, "kind")
	switch kind {
	case "", "table":
		kind = "table"
		found, err = in.HasTable(r.Context(), name, opts)
	case "sequence":
		found, err = in.HasSequence(r.Context(), name, opts)
	default:
		writeError(w, http.StatusBadRequest, "Unknown kind: "+kind,
			map[string]any{"allowed": []string{"table", "sequence"}})
		return
	}
	if err != nil {
		h.fail(w, r, "Failed to check "+kind, err)
		return
	}
	writeJSON(w, http.StatusOK, ObjectExistence{Schema: opts.Schema, Name: name, Kind: kind, Exists: found})
}

func nameList(names []string, schema string, start time.Time) model.NameList {
	if names == nil {
		names = []string{}
	}
	return model.NameList{
		Resource: names,
		Meta: &model.ResponseMeta{
			Count:  len(names),
			Schema: schema,
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	}
}
