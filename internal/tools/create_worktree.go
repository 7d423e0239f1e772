package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/worktree"
)

// CreateWorktreeTool handles the create_worktree MCP tool.
type CreateWorktreeTool struct {
	manager *worktree.Manager
}

func NewCreateWorktreeTool(m *worktree.Manager) *CreateWorktreeTool {
	return &CreateWorktreeTool{manager: m}
}

func (t *CreateWorktreeTool) Definition() mcp.Tool {
	return mcp.NewTool("create_worktree",
		mcp.WithDescription(
			"Create an isolated git worktree for a project, checked out onto a new "+
				"branch rooted at the base branch (the project's main branch when omitted). "+
				"Records the worktree as active and returns its row.",
		),
		mcp.WithNumber("project_id",
			mcp.Required(),
			mcp.Description("Project owning the repository."),
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path where the worktree is created."),
		),
		mcp.WithString("branch",
			mcp.Required(),
			mcp.Description("New branch name to check out."),
		),
		mcp.WithString("base_branch",
			mcp.Description("Branch to root the new branch at."),
		),
	)
}

func (t *CreateWorktreeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projectID, err := taskIDArg(req, "project_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	wt, err := t.manager.Create(ctx,
		projectID,
		req.GetString("worktree_path", ""),
		req.GetString("branch", ""),
		req.GetString("base_branch", ""),
	)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(wt)
}
