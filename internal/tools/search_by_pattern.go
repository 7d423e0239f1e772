package tools

import (
	"bufio"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dconley/agentforge/internal/cache"
	"github.com/dconley/agentforge/internal/sandbox"
)

// PatternMatch is one matching line from a filesystem search.
type PatternMatch struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// search limits keep a runaway pattern from walking forever.
const (
	maxPatternMatches = 200
	maxFileSizeBytes  = 1 << 20 // skip files over 1MB
	maxLineLength     = 500
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "dist": true, "build": true,
	"coverage": true, ".next": true,
}

// SearchByPatternTool handles the search_by_pattern MCP tool: a bounded
// regex walk over a worktree's files.
type SearchByPatternTool struct {
	cache *cache.Cache[[]PatternMatch]
}

func NewSearchByPatternTool(c *cache.Cache[[]PatternMatch]) *SearchByPatternTool {
	return &SearchByPatternTool{cache: c}
}

func (t *SearchByPatternTool) Definition() mcp.Tool {
	return mcp.NewTool("search_by_pattern",
		mcp.WithDescription(
			"Search files under a directory for lines matching a regular expression. "+
				"Skips VCS and dependency directories and large files; results are "+
				"capped and cached.",
		),
		mcp.WithString("root",
			mcp.Required(),
			mcp.Description("Absolute directory to search under."),
		),
		mcp.WithString("pattern",
			mcp.Required(),
			mcp.Description("Go regular expression to match against each line."),
		),
		mcp.WithString("file_glob",
			mcp.Description("Filename glob filter, e.g. *.ts."),
		),
	)
}

func (t *SearchByPatternTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	root := req.GetString("root", "")
	pattern := req.GetString("pattern", "")
	glob := req.GetString("file_glob", "")

	if err := sandbox.ValidatePath(root); err != nil {
		return errorResult(err), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid pattern: %v", err)), nil
	}

	key := cache.Key("search_by_pattern", map[string]any{
		"root": root, "pattern": pattern, "file_glob": glob,
	})
	if matches, ok := t.cache.Get(key); ok {
		return jsonResult(matches)
	}

	matches, err := searchTree(ctx, root, re, glob)
	if err != nil {
		return errorResult(err), nil
	}
	t.cache.Put(key, matches)
	return jsonResult(matches)
}

func searchTree(ctx context.Context, root string, re *regexp.Regexp, glob string) ([]PatternMatch, error) {
	matches := []PatternMatch{}
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if len(matches) >= maxPatternMatches {
			return filepath.SkipAll
		}
		if d.IsDir() {
			if skipDirs[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, d.Name()); !ok {
				return nil
			}
		}
		if info, err := d.Info(); err != nil || info.Size() > maxFileSizeBytes {
			return nil
		}

		found, err := searchFile(path, re, maxPatternMatches-len(matches))
		if err != nil {
			return nil
		}
		matches = append(matches, found...)
		return nil
	})
	// The callback only propagates context errors; everything else is
	// skipped in place.
	return matches, err
}

func searchFile(path string, re *regexp.Regexp, budget int) ([]PatternMatch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var found []PatternMatch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.ContainsRune(line, 0) {
			return found, nil // binary file
		}
		if !re.MatchString(line) {
			continue
		}
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		found = append(found, PatternMatch{File: path, Line: lineNo, Text: line})
		if len(found) >= budget {
			return found, nil
		}
	}
	return found, scanner.Err()
}
