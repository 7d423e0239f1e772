package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/sandbox"
)

// RunTestsTool handles the run_tests MCP tool.
type RunTestsTool struct {
	sandbox *sandbox.Sandbox
}

func NewRunTestsTool(s *sandbox.Sandbox) *RunTestsTool {
	return &RunTestsTool{sandbox: s}
}

func (t *RunTestsTool) Definition() mcp.Tool {
	return mcp.NewTool("run_tests",
		mcp.WithDescription(
			"Run the project's test suite inside an active worktree and return parsed "+
				"per-test results with passed/failed/skipped totals. Test failures are "+
				"reported in the result, not as a tool failure.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree."),
		),
		mcp.WithString("test_pattern",
			mcp.Description("Optional file or name pattern passed to the runner."),
		),
		mcp.WithString("test_type",
			mcp.Description("Which runner to use."),
			mcp.Enum("unit", "integration", "e2e"),
		),
	)
}

func (t *RunTestsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	worktreePath := req.GetString("worktree_path", "")
	pattern := req.GetString("test_pattern", "")
	testType := req.GetString("test_type", "")

	result, err := t.sandbox.RunTests(ctx, worktreePath, pattern, testType)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}
