package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/cache"
	"github.com/dconley/agentforge/internal/store"
)

// FindSimilarImplementationsTool handles the find_similar_implementations
// MCP tool. Results are cached; every cached result is reproducible by
// recomputation, so the cache is purely an optimization.
type FindSimilarImplementationsTool struct {
	store *store.Store
	cache *cache.Cache[[]store.DocumentHit]
}

func NewFindSimilarImplementationsTool(st *store.Store, c *cache.Cache[[]store.DocumentHit]) *FindSimilarImplementationsTool {
	return &FindSimilarImplementationsTool{store: st, cache: c}
}

func (t *FindSimilarImplementationsTool) Definition() mcp.Tool {
	return mcp.NewTool("find_similar_implementations",
		mcp.WithDescription(
			"Full-text search over indexed implementation files for code similar to "+
				"the described feature. Returns ranked matches with paths and excerpts.",
		),
		mcp.WithString("description",
			mcp.Required(),
			mcp.Description("What the implementation should do."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum matches to return. Defaults to 10."),
		),
	)
}

func (t *FindSimilarImplementationsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	description := req.GetString("description", "")
	if description == "" {
		return mcp.NewToolResultError("description is required"), nil
	}
	limit := int(req.GetFloat("limit", 10))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	key := cache.Key("find_similar_implementations", map[string]any{
		"description": description,
		"limit":       limit,
	})
	if hits, ok := t.cache.Get(key); ok {
		return jsonResult(hits)
	}

	hits, err := t.store.SearchDocuments(description, "implementation", limit)
	if err != nil {
		return errorResult(err), nil
	}
	t.cache.Put(key, hits)
	return jsonResult(hits)
}
