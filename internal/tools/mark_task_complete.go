package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/workflow"
)

// MarkTaskCompleteTool handles the mark_task_complete MCP tool.
type MarkTaskCompleteTool struct {
	service *workflow.Service
}

func NewMarkTaskCompleteTool(s *workflow.Service) *MarkTaskCompleteTool {
	return &MarkTaskCompleteTool{service: s}
}

func (t *MarkTaskCompleteTool) Definition() mcp.Tool {
	return mcp.NewTool("mark_task_complete",
		mcp.WithDescription(
			"Complete a task. The caller must present the review phase and the task "+
				"must actually be in review; the task's status becomes completed and a "+
				"final history row is recorded.",
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task to complete."),
		),
		mcp.WithString("phase",
			mcp.Required(),
			mcp.Description("Caller's current workflow phase."),
			mcp.Enum("planning", "development", "testing", "review"),
		),
		mcp.WithString("notes",
			mcp.Description("Completion notes recorded with the final history row."),
		),
	)
}

func (t *MarkTaskCompleteTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := taskIDArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	phase := workflow.Phase(req.GetString("phase", ""))
	if err := t.service.MarkTaskComplete(taskID, phase, req.GetString("notes", "")); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d marked complete.", taskID)), nil
}
