package worktree

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GHHost opens pull requests through the gh CLI. Like the git runner it
// execs directly with an argument array, never a shell.
type GHHost struct {
	timeout time.Duration
}

func NewGHHost(timeout time.Duration) *GHHost {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &GHHost{timeout: timeout}
}

func (h *GHHost) CreatePullRequest(ctx context.Context, repoPath, branch, title, body string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "gh", "pr", "create",
		"--head", branch,
		"--title", title,
		"--body", body)
	cmd.Dir = repoPath
	output, err := cmd.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("gh pr create timed out after %s", h.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("gh pr create failed: %w (%s)", err, strings.TrimSpace(string(output)))
	}

	// gh prints the PR URL as the last line.
	lines := strings.Split(strings.TrimSpace(string(output)), "\n")
	return strings.TrimSpace(lines[len(lines)-1]), nil
}
