// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates concrete implementations and
// injects them into the tools/prompts/resources that depend on abstractions.
// No business logic lives here — only wiring.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/dconley/agentforge/internal/cache"
	"github.com/dconley/agentforge/internal/config"
	"github.com/dconley/agentforge/internal/prompts"
	"github.com/dconley/agentforge/internal/resources"
	"github.com/dconley/agentforge/internal/sandbox"
	"github.com/dconley/agentforge/internal/session"
	"github.com/dconley/agentforge/internal/store"
	"github.com/dconley/agentforge/internal/telemetry"
	"github.com/dconley/agentforge/internal/tools"
	"github.com/dconley/agentforge/internal/workflow"
	"github.com/dconley/agentforge/internal/worktree"
)

// Version is set at build time via ldflags.
var Version = "dev"

const (
	searchCacheCapacity = 100
	searchCacheTTL      = 5 * time.Minute
)

// Server bundles the MCP server with the long-lived components the
// transports need to reach (session registry for the HTTP gateway,
// sandbox and limiter for config hot-reload).
type Server struct {
	MCP      *server.MCPServer
	Sessions *session.Registry
	Sandbox  *sandbox.Sandbox
	Store    *store.Store
}

// New creates and configures the MCP server with all tools, prompts,
// and resources registered. This is the single place where all
// dependencies are resolved.
//
// The returned cleanup function closes the store's database connection
// and must be called on shutdown (typically via defer). It is always
// non-nil and safe to call.
func New(cfg config.Config, logger *slog.Logger) (*Server, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	// --- Create shared dependencies ---

	st, err := store.New(store.Config{DataDir: cfg.DataDir})
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			logger.Warn("store close", "error", err)
		}
	}

	if cfg.DocsDir != "" {
		n, err := st.IngestDirectory(cfg.DocsDir)
		if err != nil {
			logger.Warn("docs ingestion", "dir", cfg.DocsDir, "error", err)
		} else {
			logger.Info("docs ingested", "dir", cfg.DocsDir, "documents", n)
		}
	}

	sessions := session.NewRegistry()
	workflows := workflow.NewService(st, logger)

	git := worktree.NewGitRunner(time.Duration(cfg.Git.TimeoutSeconds) * time.Second)
	host := worktree.NewGHHost(time.Duration(cfg.Git.TimeoutSeconds) * time.Second)
	worktrees := worktree.NewManager(st, git, host, logger)

	sbx := sandbox.New(st, cfg.Sandbox, logger)
	browser := sandbox.NewPlaywrightBrowser(sbx, cfg.DataDir)

	docsCache := cache.New[[]store.DocumentHit](searchCacheCapacity, searchCacheTTL)
	patternCache := cache.New[[]tools.PatternMatch](searchCacheCapacity, searchCacheTTL)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"agentforge",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	// --- Register workflow tools ---

	taskInfoTool := tools.NewGetTaskInfoTool(workflows)
	addTool(s, taskInfoTool.Definition(), taskInfoTool.Handle)

	planTool := tools.NewCreatePlanTool(workflows)
	addTool(s, planTool.Definition(), planTool.Handle)

	phaseTool := tools.NewUpdateTaskPhaseTool(workflows)
	addTool(s, phaseTool.Definition(), phaseTool.Handle)

	completeTool := tools.NewMarkTaskCompleteTool(workflows)
	addTool(s, completeTool.Definition(), completeTool.Handle)

	// --- Register worktree tools ---

	worktreeTool := tools.NewCreateWorktreeTool(worktrees)
	addTool(s, worktreeTool.Definition(), worktreeTool.Handle)

	branchTool := tools.NewCreateBranchTool(worktrees)
	addTool(s, branchTool.Definition(), branchTool.Handle)

	commitTool := tools.NewCommitChangesTool(worktrees)
	addTool(s, commitTool.Definition(), commitTool.Handle)

	prTool := tools.NewCreatePullRequestTool(worktrees)
	addTool(s, prTool.Definition(), prTool.Handle)

	cleanupTool := tools.NewCleanupWorktreeTool(worktrees)
	addTool(s, cleanupTool.Definition(), cleanupTool.Handle)

	// --- Register sandbox tools ---

	execTool := tools.NewExecuteCommandTool(sbx)
	addTool(s, execTool.Definition(), execTool.Handle)

	testsTool := tools.NewRunTestsTool(sbx)
	addTool(s, testsTool.Definition(), testsTool.Handle)

	typeCheckTool := tools.NewTypeCheckTool(sbx)
	addTool(s, typeCheckTool.Definition(), typeCheckTool.Handle)

	screenshotTool := tools.NewCaptureScreenshotTool(sbx, browser)
	addTool(s, screenshotTool.Definition(), screenshotTool.Handle)

	// --- Register search tools ---
	//
	// The two document tools share one cache because they return the same
	// result shape; pattern search caches compiled walks separately.

	similarTool := tools.NewFindSimilarImplementationsTool(st, docsCache)
	addTool(s, similarTool.Definition(), similarTool.Handle)

	docsTool := tools.NewGetRelevantDocsTool(st, docsCache)
	addTool(s, docsTool.Definition(), docsTool.Handle)

	patternTool := tools.NewSearchByPatternTool(patternCache)
	addTool(s, patternTool.Definition(), patternTool.Handle)

	// --- Register prompts ---

	startPrompt := prompts.NewStartTaskPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	statusPrompt := prompts.NewStatusPrompt()
	s.AddPrompt(statusPrompt.Definition(), statusPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(Version, sessions, docsCache)
	s.AddResource(resourceHandler.StatusResource(), resourceHandler.HandleStatus)
	s.AddResource(resourceHandler.PhasesResource(), resourceHandler.HandlePhases)

	return &Server{
		MCP:      s,
		Sessions: sessions,
		Sandbox:  sbx,
		Store:    st,
	}, cleanup, nil
}

// noop is the default cleanup when store init failed.
func noop() {}

// addTool registers a tool with its handler wrapped in a dispatch span.
func addTool(s *server.MCPServer, t mcp.Tool, h server.ToolHandlerFunc) {
	s.AddTool(t, traced(t.Name, h))
}

// traced wraps a tool handler so every dispatch runs inside a span named
// after the tool. With tracing disabled the global provider is a no-op
// and the wrapper costs nothing.
func traced(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := otel.Tracer(telemetry.TracerName).Start(ctx, "tools/call "+name,
			trace.WithAttributes(attribute.String("mcp.tool", name)))
		defer span.End()

		res, err := h(ctx, req)
		switch {
		case err != nil:
			span.RecordError(err)
			span.SetStatus(codes.Error, "tool dispatch failed")
		case res != nil && res.IsError:
			span.SetStatus(codes.Error, "tool returned error result")
		default:
			span.SetStatus(codes.Ok, "")
		}
		return res, err
	}
}

// serverInstructions returns the system instructions that tell the AI
// how to drive the development workflow.
func serverInstructions() string {
	return `You have access to agentforge, an execution backend for AI-driven
development workflows. It manages tasks through a phase pipeline, isolates
work in git worktrees, and runs build tooling in a sandbox.

## Phase pipeline
Every task moves through: planning → development → testing → review.
Testing may return to development; review may return to development.
Completion is only allowed from the review phase.

1. get_task_info — read the task, its current phase, and what the phase permits
2. create_plan — write the implementation plan (exactly once per task)
3. update_task_phase — advance (or bounce back) through the pipeline
4. mark_task_complete — finish a task that sits in review

## Worktrees
All file changes happen inside a dedicated git worktree:
- create_worktree before touching code; create_branch for follow-up branches
- commit_changes with a commit type (chore | bug | feature)
- create_pull_request when review starts; cleanup_worktree when done

## Execution
execute_command, run_tests, type_check, and capture_screenshot run inside
the active worktree. Only allow-listed executables run, arguments must not
contain shell metacharacters, and paths must be absolute.

## Search
find_similar_implementations and get_relevant_docs query the indexed
document corpus; search_by_pattern greps the worktree. Repeated identical
queries are served from cache.

## Rules
- Never skip the plan: phases beyond planning require one
- Phase transitions are validated server-side; invalid jumps are rejected
- Commit messages are composed server-side from type/task metadata
- A cleaned-up worktree is gone: create a new one rather than reusing paths`
}
