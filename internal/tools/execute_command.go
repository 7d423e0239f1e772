package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/sandbox"
)

// ExecuteCommandTool handles the execute_command MCP tool.
// It runs an allow-listed development command inside an active worktree.
type ExecuteCommandTool struct {
	sandbox *sandbox.Sandbox
}

func NewExecuteCommandTool(s *sandbox.Sandbox) *ExecuteCommandTool {
	return &ExecuteCommandTool{sandbox: s}
}

// Definition returns the MCP tool definition for registration.
func (t *ExecuteCommandTool) Definition() mcp.Tool {
	return mcp.NewTool("execute_command",
		mcp.WithDescription(
			"Run an allow-listed command (npm, npx, node, tsc, eslint, jest, vitest, "+
				"playwright) inside an active worktree. Returns success, exit code, and "+
				"captured output. A non-zero exit or timeout is reported in the result, "+
				"not as a tool failure.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree to run in."),
		),
		mcp.WithString("command",
			mcp.Required(),
			mcp.Description("Command name. Must be on the allow-list."),
		),
		mcp.WithArray("args",
			mcp.Description("Command arguments. Shell metacharacters are rejected."),
			mcp.WithStringItems(),
		),
	)
}

// Handle processes the execute_command tool call.
func (t *ExecuteCommandTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	worktreePath := req.GetString("worktree_path", "")
	command := req.GetString("command", "")
	args := req.GetStringSlice("args", nil)

	result, err := t.sandbox.ExecuteCommand(ctx, worktreePath, command, args)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}
