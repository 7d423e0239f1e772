package tools

import (
	"context"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/sandbox"
)

// CaptureScreenshotTool handles the capture_screenshot MCP tool.
type CaptureScreenshotTool struct {
	sandbox *sandbox.Sandbox
	browser sandbox.Browser
}

func NewCaptureScreenshotTool(s *sandbox.Sandbox, browser sandbox.Browser) *CaptureScreenshotTool {
	return &CaptureScreenshotTool{sandbox: s, browser: browser}
}

func (t *CaptureScreenshotTool) Definition() mcp.Tool {
	return mcp.NewTool("capture_screenshot",
		mcp.WithDescription(
			"Navigate a headless browser to a URL, capture a PNG, store it under the "+
				"worktree, and record its metadata. Returns the stored screenshot row "+
				"including its id for later PR references.",
		),
		mcp.WithString("worktree_path",
			mcp.Required(),
			mcp.Description("Absolute path of the active worktree."),
		),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("Page URL to capture."),
		),
		mcp.WithString("screenshot_name",
			mcp.Required(),
			mcp.Description("Name for the stored image, without extension."),
		),
		mcp.WithString("viewport",
			mcp.Description("Viewport size like 1280x720."),
		),
		mcp.WithBoolean("full_page",
			mcp.Description("Capture the full scrollable page instead of the viewport."),
		),
		mcp.WithNumber("timeout_seconds",
			mcp.Description("Navigation timeout. Defaults to 30."),
		),
	)
}

func (t *CaptureScreenshotTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	shot, err := t.sandbox.CaptureScreenshot(ctx, t.browser, sandbox.ScreenshotRequest{
		WorktreePath: req.GetString("worktree_path", ""),
		URL:          req.GetString("url", ""),
		Name:         req.GetString("screenshot_name", ""),
		Viewport:     req.GetString("viewport", ""),
		FullPage:     req.GetBool("full_page", false),
		Timeout:      time.Duration(req.GetFloat("timeout_seconds", 0)) * time.Second,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(shot)
}
