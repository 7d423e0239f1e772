package resources

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/cache"
	"github.com/dconley/agentforge/internal/session"
	"github.com/dconley/agentforge/internal/store"
)

func readJSON(t *testing.T, contents []mcp.ResourceContents) map[string]any {
	t.Helper()
	if len(contents) != 1 {
		t.Fatalf("got %d resource contents, want 1", len(contents))
	}
	text, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents are %T, want TextResourceContents", contents[0])
	}
	if text.MIMEType != "application/json" {
		t.Fatalf("mime type = %q", text.MIMEType)
	}
	var out map[string]any
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("invalid JSON payload: %v", err)
	}
	return out
}

func TestHandleStatus(t *testing.T) {
	sessions := session.NewRegistry()
	sessions.Create("mcp-session-one")
	c := cache.New[[]store.DocumentHit](4, time.Minute)
	c.Get("miss")

	h := NewHandler("1.2.3", sessions, c)
	contents, err := h.HandleStatus(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("HandleStatus: %v", err)
	}

	status := readJSON(t, contents)
	if status["version"] != "1.2.3" {
		t.Errorf("version = %v", status["version"])
	}
	if status["sessions"] != float64(1) {
		t.Errorf("sessions = %v, want 1", status["sessions"])
	}
	cacheStats, ok := status["searchCache"].(map[string]any)
	if !ok {
		t.Fatalf("searchCache = %v", status["searchCache"])
	}
	if cacheStats["misses"] != float64(1) {
		t.Errorf("cache misses = %v, want 1", cacheStats["misses"])
	}
}

func TestHandlePhases(t *testing.T) {
	h := NewHandler("dev", session.NewRegistry(), cache.New[[]store.DocumentHit](4, time.Minute))

	contents, err := h.HandlePhases(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatalf("HandlePhases: %v", err)
	}
	graph := readJSON(t, contents)

	if len(graph) != 4 {
		t.Fatalf("graph has %d phases, want 4", len(graph))
	}

	testingPhase, ok := graph["testing"].(map[string]any)
	if !ok {
		t.Fatalf("testing entry = %v", graph["testing"])
	}
	next, _ := testingPhase["transitionsTo"].([]any)
	if len(next) != 2 {
		t.Errorf("testing transitions = %v, want review and development", next)
	}

	review, _ := graph["review"].(map[string]any)
	access, _ := review["access"].(map[string]any)
	if access["review"] != true {
		t.Errorf("review phase access = %v, want review=true", access)
	}
}
