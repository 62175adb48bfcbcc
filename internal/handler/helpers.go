package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
)

// writeJSON serializes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the standard error envelope. The optional ctx map
// provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]any) {
	var ctxMap map[string]any
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// queryString extracts a string query parameter.
func queryString(r *http.Request, key string) string {
	return r.URL.Query().Get(key)
}

// queryBool extracts a boolean query parameter. Returns false if the
// parameter is missing or not "true"/"1".
func queryBool(r *http.Request, key string) bool {
	val := r.URL.Query().Get(key)
	return val == "true" || val == "1"
}

// classifyError maps reflection errors to HTTP status codes.
func classifyError(err error) int {
	var argErr *dialect.ArgumentError
	switch {
	case errors.Is(err, dialect.ErrNoSuchTable):
		return http.StatusNotFound
	case errors.Is(err, dialect.ErrAmbiguousSynonym):
		return http.StatusConflict
	case errors.As(err, &argErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
