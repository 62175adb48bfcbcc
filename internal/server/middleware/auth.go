package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/faucetdb/tibero/internal/model"
	"github.com/faucetdb/tibero/internal/service"
)

type contextKeyAuth string

// AuthPrincipalKey is the context key for the authenticated principal.
const AuthPrincipalKey contextKeyAuth = "auth_principal"

// Authenticate validates the Bearer token of every request and attaches
// its principal to the request context. Requests without a valid token
// get a 401 JSON error.
func Authenticate(authSvc *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				w.Header().Set("WWW-Authenticate", `Bearer realm="tibero"`)
				writeAuthError(w, http.StatusUnauthorized, "Authentication required. Provide a Bearer token.")
				return
			}

			p, err := authSvc.ValidateJWT(token)
			if err != nil {
				msg := "Invalid token"
				if errors.Is(err, service.ErrTokenExpired) {
					msg = "Token expired"
				}
				w.Header().Set("WWW-Authenticate", `Bearer realm="tibero", error="invalid_token"`)
				writeAuthError(w, http.StatusUnauthorized, msg)
				return
			}

			ctx := context.WithValue(r.Context(), AuthPrincipalKey, p)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSchemaAccess rejects requests for a {schema} the principal's token
// is not scoped to. It must be used after Authenticate, inside a route that
// captures the schema parameter.
func RequireSchemaAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r.Context())
		if p == nil {
			next.ServeHTTP(w, r)
			return
		}
		if schema := chi.URLParam(r, "schema"); !p.CanReflect(schema) {
			writeAuthError(w, http.StatusForbidden, "Token does not grant access to schema "+schema)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetPrincipal extracts the authenticated principal from the context.
// Returns nil when authentication is disabled.
func GetPrincipal(ctx context.Context) *service.Principal {
	if p, ok := ctx.Value(AuthPrincipalKey).(*service.Principal); ok {
		return p
	}
	return nil
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(model.ErrorResponse{
		Error: model.ErrorDetail{Code: status, Message: message},
	})
}
