package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/worktree"
)

// CreateBranchTool handles the create_branch MCP tool.
type CreateBranchTool struct {
	manager *worktree.Manager
}

func NewCreateBranchTool(m *worktree.Manager) *CreateBranchTool {
	return &CreateBranchTool{manager: m}
}

func (t *CreateBranchTool) Definition() mcp.Tool {
	return mcp.NewTool("create_branch",
		mcp.WithDescription(
			"Create and switch to a new branch inside an existing active worktree. "+
				"Updates the worktree record's branch.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree."),
		),
		mcp.WithString("branch",
			mcp.Required(),
			mcp.Description("New branch name."),
		),
		mcp.WithString("base_branch",
			mcp.Description("Branch to root the new branch at. Defaults to the current HEAD."),
		),
	)
}

func (t *CreateBranchTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path := req.GetString("worktree_path", "")
	branch := req.GetString("branch", "")

	if err := t.manager.CreateBranch(ctx, path, branch, req.GetString("base_branch", "")); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Switched worktree %s to new branch %q.", path, branch)), nil
}
