package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/faucetdb/tibero/internal/connector"
	"github.com/faucetdb/tibero/internal/drift"
)

// History gives the drift tool access to stored snapshots. Key names the
// connected database in the store.
type History struct {
	Store *drift.Store
	Key   string
}

// MCPServer exposes the reflection of one connected service as read-only
// MCP tools and resources, so agents can discover schemas and tables and
// preview the SQL they would run.
type MCPServer struct {
	registry *connector.Registry
	service  string
	history  *History
	logger   *zap.Logger
	server   *server.MCPServer
}

// NewMCPServer creates an MCPServer with every tool and resource
// registered. history may be nil, which leaves out the drift tool.
func NewMCPServer(registry *connector.Registry, service, version string, history *History, logger *zap.Logger) *MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &MCPServer{
		registry: registry,
		service:  service,
		history:  history,
		logger:   logger.Named("mcp"),
	}

	mcpServer := server.NewMCPServer(
		"Tibero Reflection",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves the MCP protocol on stdin and stdout until stdin is
// closed. Logs must not go to stdout while it runs.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode", zap.String("service", s.service))
	return server.ServeStdio(s.server, server.WithErrorLogger(zap.NewStdLog(s.logger)))
}

// ServeHTTP serves the MCP protocol in Streamable HTTP mode on addr, e.g.
// ":3001".
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", zap.String("addr", addr), zap.String("service", s.service))
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:   boolPtr(true),
		IdempotentHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
