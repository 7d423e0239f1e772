package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/cache"
	"github.com/dconley/agentforge/internal/store"
)

// GetRelevantDocsTool handles the get_relevant_docs MCP tool.
type GetRelevantDocsTool struct {
	store *store.Store
	cache *cache.Cache[[]store.DocumentHit]
}

func NewGetRelevantDocsTool(st *store.Store, c *cache.Cache[[]store.DocumentHit]) *GetRelevantDocsTool {
	return &GetRelevantDocsTool{store: st, cache: c}
}

func (t *GetRelevantDocsTool) Definition() mcp.Tool {
	return mcp.NewTool("get_relevant_docs",
		mcp.WithDescription(
			"Full-text search over indexed project documentation. An empty query "+
				"returns the most recently added documents.",
		),
		mcp.WithString("query",
			mcp.Description("Search terms. Empty returns recent documents."),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum documents to return. Defaults to 10."),
		),
	)
}

func (t *GetRelevantDocsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := req.GetString("query", "")
	limit := int(req.GetFloat("limit", 10))
	if limit <= 0 || limit > 50 {
		limit = 10
	}

	key := cache.Key("get_relevant_docs", map[string]any{
		"query": query,
		"limit": limit,
	})
	if hits, ok := t.cache.Get(key); ok {
		return jsonResult(hits)
	}

	hits, err := t.store.SearchDocuments(query, "doc", limit)
	if err != nil {
		return errorResult(err), nil
	}
	t.cache.Put(key, hits)
	return jsonResult(hits)
}
