package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/workflow"
)

// GetTaskInfoTool handles the get_task_info MCP tool.
type GetTaskInfoTool struct {
	service *workflow.Service
}

func NewGetTaskInfoTool(s *workflow.Service) *GetTaskInfoTool {
	return &GetTaskInfoTool{service: s}
}

func (t *GetTaskInfoTool) Definition() mcp.Tool {
	return mcp.NewTool("get_task_info",
		mcp.WithDescription(
			"Fetch a task together with the capability flags for the caller's phase "+
				"(plan/code/tests/review access). Corrupt task metadata is returned as "+
				"null rather than failing the call.",
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task to fetch."),
		),
		mcp.WithString("phase",
			mcp.Required(),
			mcp.Description("Caller's current workflow phase."),
			mcp.Enum("planning", "development", "testing", "review"),
		),
	)
}

func (t *GetTaskInfoTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := taskIDArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info, err := t.service.GetTaskInfo(taskID, workflow.Phase(req.GetString("phase", "")))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(info)
}
