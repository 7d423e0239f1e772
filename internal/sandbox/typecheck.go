package sandbox

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

// Diagnostic is one parsed compiler message.
type Diagnostic struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
	Severity string `json:"severity"` // error | warning
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// TypeCheckResult reports a full compiler run.
type TypeCheckResult struct {
	Success      bool         `json:"success"`
	ErrorCount   int          `json:"errorCount"`
	WarningCount int          `json:"warningCount"`
	Diagnostics  []Diagnostic `json:"diagnostics"`
	Raw          *ExecResult  `json:"raw,omitempty"`
}

// diagnosticRe matches tsc-style lines: file(line,col): severity CODE: message
var diagnosticRe = regexp.MustCompile(`^(.+)\((\d+),(\d+)\): (error|warning) ([A-Z]+\d+): (.*)$`)

// TypeCheck runs the compiler in check-only mode and parses its
// diagnostics. Success means zero errors; warnings alone still pass.
func (s *Sandbox) TypeCheck(ctx context.Context, worktreePath, project string) (*TypeCheckResult, error) {
	if project == "" {
		project = "tsconfig.json"
	}
	args := []string{"--noEmit", "--project", project}
	if err := ValidatePath(worktreePath); err != nil {
		return nil, err
	}
	if err := s.ValidateCommand("tsc", args); err != nil {
		return nil, err
	}
	if err := s.requireActiveWorktree(worktreePath); err != nil {
		return nil, err
	}

	raw, err := s.run(ctx, worktreePath, "tsc", args, s.timeout)
	if err != nil {
		return nil, err
	}

	result := ParseDiagnostics(raw.Stdout + "\n" + raw.Stderr)
	result.Raw = raw
	if raw.TimedOut {
		result.Success = false
	}
	s.logger.Info("type check finished",
		"path", worktreePath, "errors", result.ErrorCount, "warnings", result.WarningCount)
	return result, nil
}

// ParseDiagnostics extracts structured entries from compiler output.
// Unmatched lines are ignored.
func ParseDiagnostics(output string) *TypeCheckResult {
	result := &TypeCheckResult{Diagnostics: []Diagnostic{}}
	for _, line := range strings.Split(output, "\n") {
		m := diagnosticRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if m == nil {
			continue
		}
		lineNo, _ := strconv.Atoi(m[2])
		colNo, _ := strconv.Atoi(m[3])
		d := Diagnostic{
			File:     m[1],
			Line:     lineNo,
			Column:   colNo,
			Severity: m[4],
			Code:     m[5],
			Message:  m[6],
		}
		result.Diagnostics = append(result.Diagnostics, d)
		if d.Severity == "error" {
			result.ErrorCount++
		} else {
			result.WarningCount++
		}
	}
	result.Success = result.ErrorCount == 0
	return result
}
