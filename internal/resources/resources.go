// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (agentforge://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/cache"
	"github.com/dconley/agentforge/internal/session"
	"github.com/dconley/agentforge/internal/store"
	"github.com/dconley/agentforge/internal/workflow"
)

var timeNow = time.Now

// Handler serves the server-status and phase-graph resources.
type Handler struct {
	version   string
	startedAt time.Time
	sessions  *session.Registry
	docsCache *cache.Cache[[]store.DocumentHit]
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(version string, sessions *session.Registry, docsCache *cache.Cache[[]store.DocumentHit]) *Handler {
	return &Handler{
		version:   version,
		startedAt: timeNow(),
		sessions:  sessions,
		docsCache: docsCache,
	}
}

// StatusResource returns the MCP resource definition for server status.
func (h *Handler) StatusResource() mcp.Resource {
	return mcp.NewResource(
		"agentforge://server/status",
		"Server Status",
		mcp.WithResourceDescription("Server version, uptime, live session count, and search cache statistics"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleStatus returns the current server status as JSON.
func (h *Handler) HandleStatus(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	stats := h.docsCache.Stats()
	status := map[string]any{
		"version":       h.version,
		"uptimeSeconds": int64(timeNow().Sub(h.startedAt).Seconds()),
		"sessions":      h.sessions.Count(),
		"searchCache": map[string]any{
			"hits":    stats.Hits,
			"misses":  stats.Misses,
			"entries": stats.Entries,
		},
	}
	return jsonResource(req.Params.URI, status)
}

// PhasesResource returns the MCP resource definition for the phase graph.
func (h *Handler) PhasesResource() mcp.Resource {
	return mcp.NewResource(
		"agentforge://workflow/phases",
		"Workflow Phase Graph",
		mcp.WithResourceDescription("Valid phase transitions and the access rights each phase grants"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandlePhases returns the transition graph and per-phase access flags.
// The graph is static, so hosts can cache it for the session lifetime.
func (h *Handler) HandlePhases(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	phases := []workflow.Phase{
		workflow.Planning,
		workflow.Development,
		workflow.Testing,
		workflow.Review,
	}

	graph := make(map[string]any, len(phases))
	for _, p := range phases {
		var next []string
		for _, q := range phases {
			if workflow.CanTransition(p, q) {
				next = append(next, string(q))
			}
		}
		graph[string(p)] = map[string]any{
			"transitionsTo": next,
			"access":        workflow.AccessFor(p),
		}
	}
	return jsonResource(req.Params.URI, graph)
}

func jsonResource(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling resource: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
