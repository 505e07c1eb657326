package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// registerTools registers the mediatally MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("mediatally_list_services",
			mcp.WithDescription(
				"List the database services the schema can be checked against, with "+
					"their driver and whether recreation is allowed.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListServices,
	)

	srv.AddTool(
		mcp.NewTool("mediatally_describe_model",
			mcp.WithDescription(
				"Describe the declared mediatally schema: every table in dependency "+
					"order with its columns, types, nullability, defaults, foreign keys "+
					"and unique constraints.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleDescribeModel,
	)

	srv.AddTool(
		mcp.NewTool("mediatally_ddl",
			mcp.WithDescription(
				"Render the DDL that creates the schema in an empty database. "+
					"Statements are ordered: CREATE TABLE, then foreign keys, then unique constraints.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("dialect",
				mcp.Description("Target engine: postgres, mysql, mssql, sqlite or generic (default generic)"),
			),
		),
		s.handleDDL,
	)

	srv.AddTool(
		mcp.NewTool("mediatally_check_drift",
			mcp.WithDescription(
				"Compare a live database service against the declared schema and report "+
					"missing tables or columns, type and nullability mismatches, and missing "+
					"unique or foreign key constraints. Never modifies the database.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("service",
				mcp.Required(),
				mcp.Description("Name of the configured database service"),
			),
		),
		s.handleCheckDrift,
	)
}

func (s *MCPServer) handleListServices(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	type serviceInfo struct {
		Name          string `json:"name"`
		Driver        string `json:"driver"`
		Schema        string `json:"schema,omitempty"`
		AllowRecreate bool   `json:"allow_recreate"`
	}

	names := s.svc.Services()
	items := make([]serviceInfo, 0, len(names))
	for _, name := range names {
		svc, err := s.svc.Service(name)
		if err != nil {
			continue
		}
		items = append(items, serviceInfo{
			Name:          svc.Name,
			Driver:        svc.Driver,
			Schema:        svc.Schema,
			AllowRecreate: svc.AllowRecreate,
		})
	}
	return successJSON(items)
}

func (s *MCPServer) handleDescribeModel(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	desc, err := s.svc.Describe()
	if err != nil {
		return toolError("Failed to describe schema: %v", err)
	}
	return successJSON(desc)
}

func (s *MCPServer) handleDDL(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	dialect := optionalString(request, "dialect")
	steps, err := s.svc.DDL(dialect)
	if err != nil {
		return toolError("Failed to render DDL: %v", err)
	}
	if dialect == "" {
		dialect = "generic"
	}
	return successJSON(map[string]any{
		"dialect":    dialect,
		"statements": steps,
	})
}

func (s *MCPServer) handleCheckDrift(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := requireString(request, "service")
	if err != nil {
		return toolError("%v", err)
	}
	report, run, err := s.svc.Check(ctx, name)
	if err != nil {
		return toolError("Drift check failed: %v (available: %v)", err, s.svc.Services())
	}

	out := map[string]any{"report": report}
	if run != nil {
		out["run_id"] = run.RunID
	}
	return successJSON(out)
}
