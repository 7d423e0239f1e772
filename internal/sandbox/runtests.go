package sandbox

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dconley/agentforge/internal/apperr"
)

// TestCase is one parsed entry from the JSON-lines test report.
type TestCase struct {
	TestSuite    string  `json:"testSuite"`
	TestName     string  `json:"testName"`
	Status       string  `json:"status"` // passed | failed | skipped
	DurationMs   float64 `json:"durationMs"`
	ErrorMessage string  `json:"errorMessage,omitempty"`
}

// TestRunResult aggregates a full test run.
type TestRunResult struct {
	Success bool        `json:"success"`
	Total   int         `json:"total"`
	Passed  int         `json:"passed"`
	Failed  int         `json:"failed"`
	Skipped int         `json:"skipped"`
	Tests   []TestCase  `json:"tests"`
	Raw     *ExecResult `json:"raw,omitempty"`
}

// reportLine is the wire shape of one JSON-lines report entry.
type reportLine struct {
	Suite      string  `json:"suite"`
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	DurationMs float64 `json:"durationMs"`
	Error      string  `json:"error,omitempty"`
}

// RunTests executes the test runner with the longer test timeout and
// parses its JSON-lines report. A failing run is a result, not an error.
func (s *Sandbox) RunTests(ctx context.Context, worktreePath, testPattern, testType string) (*TestRunResult, error) {
	if err := ValidatePath(worktreePath); err != nil {
		return nil, err
	}

	var command string
	var args []string
	switch testType {
	case "", "unit", "integration":
		command = "vitest"
		args = []string{"run", "--reporter", "json"}
	case "e2e":
		command = "playwright"
		args = []string{"test", "--reporter", "json"}
	default:
		return nil, apperr.Ef(apperr.InvalidCommand, "unknown test type %q", testType)
	}
	if testPattern != "" {
		args = append(args, testPattern)
	}

	if err := s.ValidateCommand(command, args); err != nil {
		return nil, err
	}
	if err := s.requireActiveWorktree(worktreePath); err != nil {
		return nil, err
	}

	raw, err := s.run(ctx, worktreePath, command, args, s.testTimeout)
	if err != nil {
		return nil, err
	}

	result := ParseTestReport(raw.Stdout)
	result.Raw = raw
	if raw.TimedOut || !raw.Success && result.Failed == 0 {
		// Runner died without reporting failures: still not a pass.
		result.Success = false
	}
	s.logger.Info("test run finished", "path", worktreePath,
		"total", result.Total, "passed", result.Passed, "failed", result.Failed)
	return result, nil
}

// ParseTestReport reads one JSON object per line; lines that do not parse
// or lack a status are skipped.
func ParseTestReport(output string) *TestRunResult {
	result := &TestRunResult{Tests: []TestCase{}}
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "{") {
			continue
		}
		var entry reportLine
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		switch entry.Status {
		case "passed":
			result.Passed++
		case "failed":
			result.Failed++
		case "skipped":
			result.Skipped++
		default:
			continue
		}
		result.Total++
		result.Tests = append(result.Tests, TestCase{
			TestSuite:    entry.Suite,
			TestName:     entry.Name,
			Status:       entry.Status,
			DurationMs:   entry.DurationMs,
			ErrorMessage: entry.Error,
		})
	}
	result.Success = result.Failed == 0 && result.Total > 0
	return result
}

// SuiteCount is a per-suite pass/total pair.
type SuiteCount struct {
	Name   string `json:"name"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
}

// SuiteCounts folds per-test results into per-suite pass/total pairs,
// preserving first-seen suite order.
func (r *TestRunResult) SuiteCounts() []SuiteCount {
	index := map[string]int{}
	var out []SuiteCount
	for _, tc := range r.Tests {
		i, ok := index[tc.TestSuite]
		if !ok {
			i = len(out)
			index[tc.TestSuite] = i
			out = append(out, SuiteCount{Name: tc.TestSuite})
		}
		out[i].Total++
		if tc.Status == "passed" {
			out[i].Passed++
		}
	}
	return out
}
