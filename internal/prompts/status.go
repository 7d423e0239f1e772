package prompts

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// StatusPrompt handles the task-status MCP prompt.
// It instructs the AI to read and present a task's workflow state.
type StatusPrompt struct{}

// NewStatusPrompt creates a StatusPrompt.
func NewStatusPrompt() *StatusPrompt {
	return &StatusPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StatusPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("task-status",
		mcp.WithPromptDescription(
			"Check where a task stands: current phase, phase history, "+
				"plan presence, and what to do next.",
		),
		mcp.WithArgument("task_id",
			mcp.ArgumentDescription("Numeric id of the task to inspect"),
			mcp.RequiredArgument(),
		),
	)
}

// Handle processes the task-status prompt request.
func (p *StatusPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	taskID := req.Params.Arguments["task_id"]
	return &mcp.GetPromptResult{
		Description: "Task status",
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"Check the status of task %s.\n\n"+
						"Call `get_task_info` with task_id=%s, then:\n"+
						"1. Show the current phase and what it permits\n"+
						"2. Note whether a plan exists and summarize it briefly\n"+
						"3. List the phases already visited\n"+
						"4. Tell me the single next action to move the task forward",
					taskID, taskID,
				)),
			},
		},
	}, nil
}
