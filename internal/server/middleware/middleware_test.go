package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/service"
)

func okHandler(status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		w.Write([]byte("body"))
	})
}

// ---------------------------------------------------------------------------
// RequestID middleware tests
// ---------------------------------------------------------------------------

func TestRequestIDGeneratesUUID(t *testing.T) {
	var ctxID string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest("GET", "/test", nil))

	respID := rr.Header().Get("X-Request-ID")
	assert.Len(t, respID, 36)
	assert.Equal(t, respID, ctxID)
}

func TestRequestIDClientValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		keep bool
	}{
		{"plain", "my-custom-trace-id-123", true},
		{"spaces", "two words", false},
		{"too long", strings.Repeat("a", 129), false},
		{"control characters", "id\x00", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/test", nil)
			req.Header.Set("X-Request-ID", tt.in)
			rr := httptest.NewRecorder()
			RequestID(okHandler(http.StatusOK)).ServeHTTP(rr, req)

			got := rr.Header().Get("X-Request-ID")
			if tt.keep {
				assert.Equal(t, tt.in, got)
			} else {
				assert.NotEqual(t, tt.in, got)
				assert.Len(t, got, 36)
			}
		})
	}
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	assert.Empty(t, GetRequestID(context.Background()))
}

// ---------------------------------------------------------------------------
// Logger middleware tests
// ---------------------------------------------------------------------------

func TestLoggerLevels(t *testing.T) {
	tests := []struct {
		status int
		level  zapcore.Level
	}{
		{http.StatusOK, zapcore.InfoLevel},
		{http.StatusNotFound, zapcore.WarnLevel},
		{http.StatusInternalServerError, zapcore.ErrorLevel},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			core, logs := observer.New(zapcore.DebugLevel)
			h := RequestID(Logger(zap.New(core))(okHandler(tt.status)))

			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, httptest.NewRequest("GET", "/api/v1/schemas", nil))

			require.Equal(t, 1, logs.Len())
			entry := logs.All()[0]
			assert.Equal(t, tt.level, entry.Level)
			assert.Equal(t, "request", entry.Message)

			fields := entry.ContextMap()
			assert.Equal(t, "GET", fields["method"])
			assert.Equal(t, "/api/v1/schemas", fields["path"])
			assert.EqualValues(t, tt.status, fields["status"])
			assert.EqualValues(t, 4, fields["bytes"])
			assert.Equal(t, rr.Header().Get("X-Request-ID"), fields["request_id"])
		})
	}
}

func TestResponseWriterDefaultsToOK(t *testing.T) {
	rr := httptest.NewRecorder()
	ww := &responseWriter{ResponseWriter: rr, status: http.StatusOK}
	ww.Write([]byte("x"))
	ww.WriteHeader(http.StatusTeapot)

	assert.Equal(t, http.StatusOK, ww.status)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Same(t, rr, ww.Unwrap())
}

// ---------------------------------------------------------------------------
// RateLimit middleware tests
// ---------------------------------------------------------------------------

func TestRateLimit(t *testing.T) {
	h := RateLimit(2, time.Minute)(okHandler(http.StatusOK))

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest("GET", "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		codes[i] = rr.Code
	}
	assert.Equal(t, []int{200, 200, http.StatusTooManyRequests}, codes)
}

func TestRateLimitDisabled(t *testing.T) {
	h := RateLimit(0, 0)(okHandler(http.StatusOK))
	for range 5 {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, rr.Code)
	}
}

// ---------------------------------------------------------------------------
// Authenticate middleware tests
// ---------------------------------------------------------------------------

const testSecret = "test-secret-at-least-32-bytes-long!!"

func issue(t *testing.T, schemas []string, ttl time.Duration) string {
	t.Helper()
	token, err := service.NewAuthService(testSecret).IssueJWT("ci", schemas, ttl)
	require.NoError(t, err)
	return token
}

func TestAuthenticate(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    int
		message string
	}{
		{"missing", "", http.StatusUnauthorized, "Authentication required. Provide a Bearer token."},
		{"wrong scheme", "Basic Y2k6Y2k=", http.StatusUnauthorized, "Authentication required. Provide a Bearer token."},
		{"garbage", "Bearer not.a.token", http.StatusUnauthorized, "Invalid token"},
		{"expired", "Bearer " + issue(t, nil, -time.Hour), http.StatusUnauthorized, "Token expired"},
		{"valid", "Bearer " + issue(t, nil, time.Hour), http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal *service.Principal
			h := Authenticate(service.NewAuthService(testSecret))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				principal = GetPrincipal(r.Context())
			}))

			req := httptest.NewRequest("GET", "/api/v1/schemas", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.want, rr.Code)
			if tt.want == http.StatusOK {
				require.NotNil(t, principal)
				assert.Equal(t, "ci", principal.Subject)
				return
			}
			assert.Nil(t, principal)
			assert.Contains(t, rr.Header().Get("WWW-Authenticate"), "Bearer")
			var body model.ErrorResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
			assert.Equal(t, tt.want, body.Error.Code)
			assert.Equal(t, tt.message, body.Error.Message)
		})
	}
}

func TestRequireSchemaAccess(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Authenticate(service.NewAuthService(testSecret)))
	r.Route("/schemas/{schema}", func(r chi.Router) {
		r.Use(RequireSchemaAccess)
		r.Get("/tables", okHandler(http.StatusOK).ServeHTTP)
	})

	scoped := "Bearer " + issue(t, []string{"scott"}, time.Hour)
	tests := []struct {
		path string
		want int
	}{
		{"/schemas/scott/tables", http.StatusOK},
		{"/schemas/SCOTT/tables", http.StatusOK},
		{"/schemas/hr/tables", http.StatusForbidden},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", tt.path, nil)
		req.Header.Set("Authorization", scoped)
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		assert.Equal(t, tt.want, rr.Code, tt.path)
	}
}

func TestRequireSchemaAccessWithoutPrincipal(t *testing.T) {
	rr := httptest.NewRecorder()
	RequireSchemaAccess(okHandler(http.StatusOK)).ServeHTTP(rr, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}
