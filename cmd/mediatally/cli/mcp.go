package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	mtmcp "github.com/mediatally/mediatally/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the schema description,
its DDL and drift checks as tools. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC.
In HTTP mode, the server listens on the specified port for SSE connections.`,
		Example: `  mediatally mcp                            # stdio mode
  mediatally mcp --transport http --port 3001  # HTTP SSE mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(cmd, transport, port)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")

	return cmd
}

func runMCP(cmd *cobra.Command, transport string, port int) error {
	a, err := openApp(cmd.Context(), true)
	if err != nil {
		return err
	}
	defer a.Close()

	mcpSrv := mtmcp.NewMCPServer(a.svc, versionString(), a.logger)

	switch transport {
	case "stdio":
		return mcpSrv.ServeStdio()
	case "http":
		addr := fmt.Sprintf(":%d", port)
		a.logger.Info("starting MCP HTTP server", "addr", addr)
		return mcpSrv.ServeHTTP(addr)
	default:
		return fmt.Errorf("unsupported transport %q; use 'stdio' or 'http'", transport)
	}
}
