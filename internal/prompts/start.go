// Package prompts implements the MCP prompts the server advertises.
// Prompts are canned instructions the host can inject to drive the
// workflow correctly; they carry no state of their own.
package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StartTaskPrompt handles the start-task MCP prompt. It walks the AI
// through picking up a task: read it, plan it, open a worktree.
type StartTaskPrompt struct{}

// NewStartTaskPrompt creates a StartTaskPrompt.
func NewStartTaskPrompt() *StartTaskPrompt {
	return &StartTaskPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartTaskPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("start-task",
		mcp.WithPromptDescription(
			"Begin work on a task: read its details, write the plan, "+
				"and set up an isolated worktree.",
		),
		mcp.WithArgument("task_id",
			mcp.ArgumentDescription("Numeric id of the task to start"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the start-task prompt request.
func (p *StartTaskPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	taskID := req.Params.Arguments["task_id"]
	return &mcp.GetPromptResult{
		Description: "Start a task",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Start work on task %s.\n\n"+
						"1. Call `get_task_info` with task_id=%s and summarize the task for me\n"+
						"2. Draft an implementation plan and call `create_plan` once I approve it\n"+
						"3. Call `create_worktree` so all changes land in an isolated worktree\n"+
						"4. Call `update_task_phase` to move the task from planning to development\n\n"+
						"Do not write any code before the plan is saved.",
					taskID, taskID,
				)),
			},
		},
	}, nil
}
