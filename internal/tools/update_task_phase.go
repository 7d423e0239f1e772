package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/workflow"
)

// UpdateTaskPhaseTool handles the update_task_phase MCP tool.
type UpdateTaskPhaseTool struct {
	service *workflow.Service
}

func NewUpdateTaskPhaseTool(s *workflow.Service) *UpdateTaskPhaseTool {
	return &UpdateTaskPhaseTool{service: s}
}

func (t *UpdateTaskPhaseTool) Definition() mcp.Tool {
	return mcp.NewTool("update_task_phase",
		mcp.WithDescription(
			"Move a task along the phase graph (planning → development → testing → "+
				"review, with rework edges back to development). The from phase must "+
				"match the task's actual current phase; the edge must exist in the graph.",
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task to transition."),
		),
		mcp.WithString("from_phase",
			mcp.Required(),
			mcp.Description("Phase the caller believes the task is in."),
			mcp.Enum("planning", "development", "testing", "review"),
		),
		mcp.WithString("to_phase",
			mcp.Required(),
			mcp.Description("Phase to move the task to."),
			mcp.Enum("planning", "development", "testing", "review"),
		),
		mcp.WithObject("metadata",
			mcp.Description("Free-form context recorded with the transition."),
		),
	)
}

func (t *UpdateTaskPhaseTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := taskIDArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	from := workflow.Phase(req.GetString("from_phase", ""))
	to := workflow.Phase(req.GetString("to_phase", ""))
	for _, p := range []workflow.Phase{from, to} {
		if !workflow.ValidPhase(p) {
			return errorResult(apperr.Ef(apperr.InvalidPhaseTransition, "unknown phase %q", p)), nil
		}
	}
	metadata, _ := req.GetArguments()["metadata"].(map[string]any)

	if err := t.service.UpdateTaskPhase(taskID, from, to, metadata); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d moved from %s to %s.", taskID, from, to)), nil
}
