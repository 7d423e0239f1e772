package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/sandbox"
)

// TypeCheckTool handles the type_check MCP tool.
type TypeCheckTool struct {
	sandbox *sandbox.Sandbox
}

func NewTypeCheckTool(s *sandbox.Sandbox) *TypeCheckTool {
	return &TypeCheckTool{sandbox: s}
}

func (t *TypeCheckTool) Definition() mcp.Tool {
	return mcp.NewTool("type_check",
		mcp.WithDescription(
			"Run the TypeScript compiler in check-only mode inside an active worktree "+
				"and return structured diagnostics with separate error and warning counts. "+
				"Succeeds when the error count is zero.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree."),
		),
		mcp.WithString("project",
			mcp.Description("tsconfig file to check. Defaults to tsconfig.json."),
		),
	)
}

func (t *TypeCheckTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	worktreePath := req.GetString("worktree_path", "")
	project := req.GetString("project", "")

	result, err := t.sandbox.TypeCheck(ctx, worktreePath, project)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}
