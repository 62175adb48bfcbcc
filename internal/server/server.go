package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/handler"
	"github.com/faucetdb/tibero/internal/server/middleware"
	"github.com/faucetdb/tibero/internal/service"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host            string
	Port            int
	ShutdownTimeout time.Duration
	CORSOrigins     []string
	CORSMethods     []string
	// RateLimit requests per RateWindow per client IP; zero disables it.
	RateLimit  int
	RateWindow time.Duration
	// JWTSecret enables bearer token authentication of /api/v1 when set.
	JWTSecret string
}

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() Config {
	return Config{
		Host:            "0.0.0.0",
		Port:            8080,
		ShutdownTimeout: 30 * time.Second,
		CORSOrigins:     []string{"*"},
		CORSMethods:     []string{"GET"},
		RateLimit:       100,
		RateWindow:      time.Minute,
	}
}

// Server serves the read-only reflection API of one connected service.
type Server struct {
	cfg        Config
	router     chi.Router
	registry   *connector.Registry
	service    string
	httpServer *http.Server
	logger     *zap.Logger
}

// New creates a Server with all routes and middleware wired. Call
// ListenAndServe to start accepting connections.
func New(cfg Config, registry *connector.Registry, service string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		registry: registry,
		service:  service,
		logger:   logger.Named("http"),
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// --- Global middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(s.logger))
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: s.cfg.CORSMethods,
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))
	r.Use(chimw.Compress(5))

	// --- Health checks ---
	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)

	// --- Reflection API ---
	secured := s.cfg.JWTSecret != ""
	h := handler.NewSchemaHandler(s.registry, s.service, s.logger)
	oh := handler.NewOpenAPIHandler(s.registry, s.service, secured, s.logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.cfg.RateLimit, s.cfg.RateWindow))
		if secured {
			r.Use(middleware.Authenticate(service.NewAuthService(s.cfg.JWTSecret)))
		}

		r.Get("/schemas", h.ListSchemas)
		r.Route("/schemas/{schema}", func(r chi.Router) {
			r.Use(middleware.RequireSchemaAccess)
			r.Get("/openapi.json", oh.ServeSchemaSpec)
			r.Get("/tables", h.ListTables)
			r.Get("/tables/{table}", h.GetTable)
			r.Get("/tables/{table}/select", h.PreviewSelect)
			r.Get("/tables/{table}/rows", h.FetchRows)
			r.Get("/views/{view}/definition", h.GetViewDefinition)
			r.Get("/exists/{name}", h.ObjectExists)
		})
	})

	s.router = r
}

// handleHealthz is the liveness check. Returns 200 if the process is running.
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

// handleReadyz is the readiness check. Returns 200 when every connected
// service answers a ping, 503 otherwise.
func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	status := "ok"
	httpStatus := http.StatusOK
	checks := make(map[string]string)

	services := s.registry.ListServices()
	if len(services) == 0 {
		status = "degraded"
	}
	for _, name := range services {
		conn, err := s.registry.Get(name)
		if err == nil {
			err = conn.Ping(r.Context())
		}
		if err != nil {
			checks[name] = "error: " + err.Error()
			status = "degraded"
		} else {
			checks[name] = "ok"
		}
	}

	if status != "ok" {
		httpStatus = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	json.NewEncoder(w).Encode(map[string]any{
		"status": status,
		"checks": checks,
	})
}

// ListenAndServe starts the HTTP server and blocks until ctx is done or a
// SIGINT or SIGTERM is received. It then drains in-flight requests before
// closing every database connection.
func (s *Server) ListenAndServe(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("service", s.service),
			zap.Bool("auth", s.cfg.JWTSecret != ""))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server listen: %w", err)
	case <-ctx.Done():
		s.logger.Info("shutdown signal received, draining connections")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.registry.CloseAll()
	s.logger.Info("server stopped")
	return nil
}

// Router returns the underlying Chi router, useful for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ServeHTTP implements http.Handler, delegating to the router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
