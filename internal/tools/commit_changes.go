package tools

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/worktree"
)

// CommitChangesTool handles the commit_changes MCP tool.
type CommitChangesTool struct {
	manager *worktree.Manager
}

func NewCommitChangesTool(m *worktree.Manager) *CommitChangesTool {
	return &CommitChangesTool{manager: m}
}

func (t *CommitChangesTool) Definition() mcp.Tool {
	return mcp.NewTool("commit_changes",
		mcp.WithDescription(
			"Stage all changes in an active worktree and commit them with the fixed "+
				"audit message template carrying the phase, type, task id, and ADW id. "+
				"Fails with NO_CHANGES when the working tree is clean.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree."),
		),
		mcp.WithString("phase",
			mcp.Required(),
			mcp.Description("Workflow phase the commit belongs to."),
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("One-line commit description."),
		),
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Change category."),
			mcp.Enum("chore", "bug", "feature"),
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task the commit implements."),
		),
		mcp.WithString("adw_id",
			mcp.Description("AI developer workflow run id. Generated server-side when omitted."),
		),
	)
}

func (t *CommitChangesTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := taskIDArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	adwID := req.GetString("adw_id", "")
	if adwID == "" {
		adwID = uuid.NewString()
	}

	sha, err := t.manager.Commit(ctx,
		req.GetString("worktree_path", ""),
		req.GetString("phase", ""),
		req.GetString("description", ""),
		req.GetString("type", ""),
		taskID,
		adwID,
	)
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Committed as %s.", sha)), nil
}
