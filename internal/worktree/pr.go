package worktree

import (
	"context"
	"fmt"
	"strings"

	"github.com/dconley/agentforge/internal/apperr"
)

// VCSHost opens pull requests on the hosting provider.
type VCSHost interface {
	CreatePullRequest(ctx context.Context, repoPath, branch, title, body string) (url string, err error)
}

// SuiteResult summarizes one test suite for a pull request body.
type SuiteResult struct {
	Name   string `json:"name"`
	Passed int    `json:"passed"`
	Total  int    `json:"total"`
}

// TestSummary is the aggregate attached to a pull request.
type TestSummary struct {
	Suites          []SuiteResult `json:"suites"`
	CoveragePercent float64       `json:"coveragePercent"`
}

// PullRequestInput carries everything needed to open a PR for a worktree.
type PullRequestInput struct {
	Path          string
	Title         string
	Description   string
	PlanID        string
	TaskID        int64
	ScreenshotIDs []int64
	TestResults   *TestSummary
}

// CreatePullRequest composes the fixed-section body and opens the PR via
// the VCS host. Returns the PR URL.
func (m *Manager) CreatePullRequest(ctx context.Context, in PullRequestInput) (string, error) {
	wt, err := m.getActiveWorktree(in.Path)
	if err != nil {
		return "", err
	}
	project, err := m.getProject(wt.ProjectID)
	if err != nil {
		return "", err
	}
	if m.host == nil {
		return "", apperr.E(apperr.Internal, "no VCS host configured")
	}

	body := m.composeBody(wt.ID, in)
	url, err := m.host.CreatePullRequest(ctx, project.RepoPath, wt.Branch, in.Title, body)
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "open pull request", err)
	}
	m.logger.Info("pull request opened", "path", in.Path, "url", url, "task_id", in.TaskID)
	return url, nil
}

// composeBody renders the fixed PR sections. Absent inputs still get their
// section so reviewers see a consistent shape.
func (m *Manager) composeBody(worktreeID int64, in PullRequestInput) string {
	var b strings.Builder

	b.WriteString("## Summary\n\n")
	if in.Description != "" {
		b.WriteString(in.Description)
	} else {
		b.WriteString("_No description provided._")
	}
	b.WriteString("\n\n")

	b.WriteString("## Plan Reference\n\n")
	if in.PlanID != "" {
		fmt.Fprintf(&b, "Plan: `%s` (task #%d)\n\n", in.PlanID, in.TaskID)
	} else {
		fmt.Fprintf(&b, "Task #%d\n\n", in.TaskID)
	}

	b.WriteString("## Screenshots\n\n")
	b.WriteString(m.screenshotSection(worktreeID, in.ScreenshotIDs))
	b.WriteString("\n")

	b.WriteString("## Test Results\n\n")
	b.WriteString(testResultsSection(in.TestResults))
	b.WriteString("\n")

	b.WriteString("## Checklist\n\n")
	b.WriteString("- [ ] Code reviewed\n")
	b.WriteString("- [ ] Tests pass\n")
	b.WriteString("- [ ] No secrets or credentials committed\n")
	b.WriteString("- [ ] Documentation updated where needed\n")

	return b.String()
}

func (m *Manager) screenshotSection(worktreeID int64, ids []int64) string {
	if len(ids) == 0 {
		return "_None captured._\n"
	}
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	shots, err := m.store.ListScreenshots(worktreeID)
	if err != nil {
		m.logger.Warn("listing screenshots for PR body failed", "error", err)
		return "_None captured._\n"
	}

	var b strings.Builder
	for _, sc := range shots {
		if wanted[sc.ID] {
			fmt.Fprintf(&b, "- **%s** (`%s`)\n", sc.Name, sc.Path)
		}
	}
	if b.Len() == 0 {
		return "_None captured._\n"
	}
	return b.String()
}

func testResultsSection(sum *TestSummary) string {
	if sum == nil || len(sum.Suites) == 0 {
		return "_Not run._\n"
	}
	var b strings.Builder
	b.WriteString("| Suite | Passed | Total |\n|---|---|---|\n")
	for _, s := range sum.Suites {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", s.Name, s.Passed, s.Total)
	}
	fmt.Fprintf(&b, "\nCoverage: %.1f%%\n", sum.CoveragePercent)
	return b.String()
}
