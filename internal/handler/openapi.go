package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/dialect"
	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/openapi"
)

// OpenAPIHandler generates OpenAPI 3.1 documents of the reflection API
// from a live reflection of one schema.
type OpenAPIHandler struct {
	registry *connector.Registry
	service  string
	secured  bool
	logger   *zap.Logger
}

// NewOpenAPIHandler creates an OpenAPIHandler for the named service.
// secured marks every operation as requiring a bearer token.
func NewOpenAPIHandler(registry *connector.Registry, service string, secured bool, logger *zap.Logger) *OpenAPIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAPIHandler{registry: registry, service: service, secured: secured, logger: logger}
}

// ServeSchemaSpec reflects every table and view of a schema and returns
// the document describing them.
// GET /api/v1/schemas/{schema}/openapi.json
func (h *OpenAPIHandler) ServeSchemaSpec(w http.ResponseWriter, r *http.Request) {
	conn, err := h.registry.Get(h.service)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "Service not connected: "+h.service)
		return
	}

	opts := reflectOptions(r)
	opts.Kind = model.KindAny
	schema, err := conn.Inspect(dialect.NewInfoCache()).ReflectSchema(r.Context(), opts)
	if err != nil {
		status := classifyError(err)
		if status >= 500 {
			h.logger.Error("openapi reflection failed", zap.String("schema", opts.Schema), zap.Error(err))
		}
		writeError(w, status, "Failed to reflect schema: "+err.Error())
		return
	}
	if schema.Name == "" {
		schema.Name = opts.Schema
	}

	doc := openapi.GenerateSchemaSpec(schema, openapi.Options{
		Title:   h.service,
		BaseURL: baseURL(r),
		Secured: h.secured,
	})
	writeJSON(w, http.StatusOK, doc)
}

// baseURL is the scheme and host the request reached us on, honouring a
// proxy's X-Forwarded-Proto.
func baseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
