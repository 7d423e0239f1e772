package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/workflow"
)

// CreatePlanTool handles the create_plan MCP tool.
type CreatePlanTool struct {
	service *workflow.Service
}

func NewCreatePlanTool(s *workflow.Service) *CreatePlanTool {
	return &CreatePlanTool{service: s}
}

func (t *CreatePlanTool) Definition() mcp.Tool {
	return mcp.NewTool("create_plan",
		mcp.WithDescription(
			"Attach an implementation plan to a task and open its workflow history in "+
				"the planning phase. A task's plan is write-once: a second attempt fails "+
				"with PLAN_EXISTS instead of overwriting.",
		),
		mcp.WithNumber("task_id",
			mcp.Required(),
			mcp.Description("Task to plan."),
		),
		mcp.WithString("overview",
			mcp.Required(),
			mcp.Description("What the plan accomplishes."),
		),
		mcp.WithArray("steps",
			mcp.Required(),
			mcp.Description("Ordered implementation steps."),
			mcp.WithStringItems(),
		),
		mcp.WithString("technical_approach",
			mcp.Required(),
			mcp.Description("How the steps will be implemented."),
		),
		mcp.WithArray("files_to_create",
			mcp.Description("New files the plan expects to add."),
			mcp.WithStringItems(),
		),
		mcp.WithArray("files_to_modify",
			mcp.Description("Existing files the plan expects to touch."),
			mcp.WithStringItems(),
		),
		mcp.WithArray("risks",
			mcp.Description("Known risks or open questions."),
			mcp.WithStringItems(),
		),
		mcp.WithString("created_by",
			mcp.Description("ADW run or agent identifier creating the plan."),
		),
	)
}

func (t *CreatePlanTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	taskID, err := taskIDArg(req, "task_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	plan := workflow.Plan{
		Overview:          req.GetString("overview", ""),
		Steps:             req.GetStringSlice("steps", nil),
		TechnicalApproach: req.GetString("technical_approach", ""),
		FilesToCreate:     req.GetStringSlice("files_to_create", nil),
		FilesToModify:     req.GetStringSlice("files_to_modify", nil),
		Risks:             req.GetStringSlice("risks", nil),
		CreatedBy:         req.GetString("created_by", ""),
	}
	if plan.Overview == "" || len(plan.Steps) == 0 {
		return mcp.NewToolResultError("overview and at least one step are required"), nil
	}

	if err := t.service.CreatePlan(taskID, plan); err != nil {
		return errorResult(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Plan created for task %d with %d steps.", taskID, len(plan.Steps))), nil
}
