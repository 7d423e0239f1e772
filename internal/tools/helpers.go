// Package tools implements the MCP tool handlers.
//
// Each file is one tool: a struct carrying its dependencies, a Definition
// for registration, and a Handle. Domain failures come back as tool error
// results with their machine-readable code; only infra failures return a
// Go error to the protocol layer.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/apperr"
)

// errorResult renders a domain error as a tool error result, prefixed with
// its code so agents can branch on it. Internal errors are collapsed to a
// generic message with no leaked detail.
func errorResult(err error) *mcp.CallToolResult {
	kind := apperr.KindOf(err)
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", kind.Code(), apperr.UserMessage(err)))
}

// jsonResult marshals v as an indented JSON text result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(raw)), nil
}

// int64SliceArg reads an optional array of numeric ids. Non-numeric
// entries are skipped.
func int64SliceArg(req mcp.CallToolRequest, name string) []int64 {
	raw, ok := req.GetArguments()[name].([]any)
	if !ok {
		return nil
	}
	var out []int64
	for _, v := range raw {
		if f, ok := v.(float64); ok {
			out = append(out, int64(f))
		}
	}
	return out
}

// taskIDArg reads a required positive integer task id.
func taskIDArg(req mcp.CallToolRequest, name string) (int64, error) {
	v := req.GetFloat(name, 0)
	id := int64(v)
	if id <= 0 || float64(id) != v {
		return 0, fmt.Errorf("%s must be a positive integer", name)
	}
	return id, nil
}
