package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	modelURI       = "mediatally://model"
	catalogURIBase = "mediatally://catalog/"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			modelURI,
			"Declared Schema",
			mcp.WithResourceDescription("The declared mediatally tables with their columns and constraints."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleModelResource,
	)

	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			catalogURIBase+"{service}",
			"Live Catalog",
			mcp.WithTemplateDescription(
				"Introspected tables of a live database service, including columns, "+
					"primary keys, foreign keys and unique constraints.",
			),
			mcp.WithTemplateMIMEType("application/json"),
		),
		s.handleCatalogResource,
	)
}

func (s *MCPServer) handleModelResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	desc, err := s.svc.Describe()
	if err != nil {
		return nil, fmt.Errorf("failed to describe schema: %w", err)
	}
	return jsonResource(modelURI, desc)
}

func (s *MCPServer) handleCatalogResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	uri := request.Params.URI
	name := strings.TrimPrefix(uri, catalogURIBase)
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid catalog URI %q: expected %s{service}", uri, catalogURIBase)
	}
	cat, err := s.svc.Catalog(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to introspect %q: %w", name, err)
	}
	return jsonResource(uri, cat)
}
