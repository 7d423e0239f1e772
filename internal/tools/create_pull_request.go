package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/worktree"
)

// CreatePullRequestTool handles the create_pull_request MCP tool.
type CreatePullRequestTool struct {
	manager *worktree.Manager
}

func NewCreatePullRequestTool(m *worktree.Manager) *CreatePullRequestTool {
	return &CreatePullRequestTool{manager: m}
}

func (t *CreatePullRequestTool) Definition() mcp.Tool {
	return mcp.NewTool("create_pull_request",
		mcp.WithDescription(
			"Open a pull request for an active worktree's branch. The body is composed "+
				"from fixed sections: Summary, Plan Reference, Screenshots, Test Results "+
				"(per-suite pass/total plus coverage), and a review checklist.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree."),
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Pull request title."),
		),
		mcp.WithString("description",
			mcp.Description("Summary section content."),
		),
		mcp.WithString("plan_id",
			mcp.Description("Plan reference to cite in the body."),
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task the pull request closes."),
		),
		mcp.WithArray("screenshot_ids",
			mcp.Description("Screenshot row ids to embed."),
			mcp.Items(map[string]any{"type": "number"}),
		),
		mcp.WithString("test_results",
			mcp.Description(`JSON test summary: {"suites":[{"name","passed","total"}],"coveragePercent"}.`),
		),
	)
}

func (t *CreatePullRequestTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := taskIDArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	screenshotIDs := int64SliceArg(req, "screenshot_ids")

	var summary *worktree.TestSummary
	if raw := req.GetString("test_results", ""); raw != "" {
		summary = &worktree.TestSummary{}
		if err := json.Unmarshal([]byte(raw), summary); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("test_results is not valid JSON: %v", err)), nil
		}
	}

	url, err := t.manager.CreatePullRequest(ctx, worktree.PullRequestInput{
		Path:          req.GetString("worktree_path", ""),
		Title:         req.GetString("title", ""),
		Description:   req.GetString("description", ""),
		PlanID:        req.GetString("plan_id", ""),
		TaskID:        taskID,
		ScreenshotIDs: screenshotIDs,
		TestResults:   summary,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Pull request opened: %s", url)), nil
}
