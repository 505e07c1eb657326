package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mediatally/mediatally/internal/service"
)

// MCPServer exposes the declared schema, its DDL and drift checks as MCP
// tools and resources.
type MCPServer struct {
	svc    *service.SchemaService
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer with every tool and resource
// registered. The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(svc *service.SchemaService, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := &MCPServer{
		svc:    svc,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"mediatally",
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

// ServeStdio serves MCP over stdin/stdout for clients that launch the
// server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP serves MCP in Streamable HTTP mode on addr (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
