package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/query"
)

// SelectPreview is the body of the select preview endpoint.
type SelectPreview struct {
	SQL  string `json:"sql"`
	Args []any  `json:"args"`
}

// RowPage is the body of the rows endpoint.
type RowPage struct {
	Rows  []dialect.Row `json:"rows"`
	Count int           `json:"count"`
}

const (
	defaultRowLimit = 100
	maxRowLimit     = 1000
)

// PreviewSelect renders the paginated SELECT a client would run against a
// table without executing it. Query parameters: columns (comma list),
// filter (expression), order ("sal DESC,ename" or "-sal,ename"), limit,
// offset and for_update_of (comma list, may be empty to lock without OF).
// GET /api/v1/schemas/{schema}/tables/{table}/select
func (h *SchemaHandler) PreviewSelect(w http.ResponseWriter, r *http.Request) {
	conn, err := h.registry.Get(h.service)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Service not connected: "+h.service)
		return
	}
	req, err := selectRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sql, args, err := conn.BuildSelect(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to build select: "+err.Error())
		return
	}
	if args == nil {
		args = []any{}
	}
	writeJSON(w, http.StatusOK, SelectPreview{SQL: sql, Args: args})
}

// FetchRows runs the SELECT described by the same query parameters as
// PreviewSelect, without for_update_of, and returns the rows converted to
// the reflected column types. limit defaults to 100 and is capped at 1000.
// GET /api/v1/schemas/{schema}/tables/{table}/rows
func (h *SchemaHandler) FetchRows(w http.ResponseWriter, r *http.Request) {
	conn, err := h.registry.Get(h.service)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Service not connected: "+h.service)
		return
	}
	fetcher, ok := conn.(connector.Fetcher)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Driver "+conn.DriverName()+" cannot run selects")
		return
	}
	req, err := selectRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ForUpdateOf != nil {
		writeError(w, http.StatusBadRequest, "for_update_of is not supported when fetching rows")
		return
	}
	if req.Limit == 0 {
		req.Limit = defaultRowLimit
	}
	req.Limit = min(req.Limit, maxRowLimit)

	rows, err := fetcher.Fetch(r.Context(), req)
	if err != nil {
		h.fail(w, r, "Failed to fetch rows", err)
		return
	}
	if rows == nil {
		rows = []dialect.Row{}
	}
	writeJSON(w, http.StatusOK, RowPage{Rows: rows, Count: len(rows)})
}

// selectRequest reads the select query parameters shared by the preview
// and rows endpoints.
func selectRequest(r *http.Request) (connector.SelectRequest, error) {
	req := connector.SelectRequest{
		Schema: chi.URLParam(r, "schema"),
		Table:  chi.URLParam(r, "table"),
		Filter: queryString(r, "filter"),
		NoWait: queryBool(r, "nowait"),
	}
	var err error
	if req.Fields, err = query.ParseFields(queryString(r, "columns")); err != nil {
		return req, err
	}
	if req.Order, err = query.ParseOrder(queryString(r, "order")); err != nil {
		return req, err
	}
	if req.Limit, err = queryInt(r, "limit"); err != nil {
		return req, err
	}
	if req.Offset, err = queryInt(r, "offset"); err != nil {
		return req, err
	}
	if r.URL.Query().Has("for_update_of") {
		req.ForUpdateOf = splitParam(queryString(r, "for_update_of"))
		if req.ForUpdateOf == nil {
			req.ForUpdateOf = []string{}
		}
	}
	return req, nil
}

// queryInt extracts a non-negative integer query parameter; missing is 0.
func queryInt(r *http.Request, key string) (int, error) {
	val := r.URL.Query().Get(key)
	if val == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil || n < 0 {
		return 0, &paramError{key: key, value: val}
	}
	return n, nil
}

type paramError struct {
	key, value string
}

func (e *paramError) Error() string {
	return "invalid " + e.key + ": " + strconv.Quote(e.value)
}

func splitParam(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
