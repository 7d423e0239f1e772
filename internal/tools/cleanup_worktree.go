package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/worktree"
)

// CleanupWorktreeTool handles the cleanup_worktree MCP tool.
type CleanupWorktreeTool struct {
	manager *worktree.Manager
}

func NewCleanupWorktreeTool(m *worktree.Manager) *CleanupWorktreeTool {
	return &CleanupWorktreeTool{manager: m}
}

func (t *CleanupWorktreeTool) Definition() mcp.Tool {
	return mcp.NewTool("cleanup_worktree",
		mcp.WithDescription(
			"Remove a worktree from disk and mark its record inactive. Idempotent: "+
				"a directory already gone or a record already inactive still succeeds.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the worktree to clean up."),
		),
	)
}

func (t *CleanupWorktreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("worktree_path", "")
	if err := t.manager.Cleanup(ctx, path); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Worktree %s cleaned up.", path)), nil
}
