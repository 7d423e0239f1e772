package worktree

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// GitRunner executes a git command rooted at dir and returns its combined
// output. Implementations must never pass through a shell.
type GitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// execRunner runs git directly with an argument array and a hard timeout.
type execRunner struct {
	timeout time.Duration
}

// NewGitRunner returns the process-backed runner. A non-positive timeout
// falls back to 30s.
func NewGitRunner(timeout time.Duration) GitRunner {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &execRunner{timeout: timeout}
}

func (r *execRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	full := append([]string{"-C", dir}, args...)
	command := exec.CommandContext(ctx, "git", full...)
	output, err := command.CombinedOutput()
	if ctx.Err() == context.DeadlineExceeded {
		return "", fmt.Errorf("git %s timed out after %s", args[0], r.timeout)
	}
	if err != nil {
		return "", fmt.Errorf("git %s failed: %w (%s)", args[0], err, strings.TrimSpace(string(output)))
	}
	return strings.TrimSpace(string(output)), nil
}

// validBranchName rejects names git would refuse or that could be read as
// flags or shell text if they ever leaked into another context.
func validBranchName(name string) bool {
	if name == "" || len(name) > 200 {
		return false
	}
	if strings.HasPrefix(name, "-") || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.Contains(name, "..") || strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, "/") {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case r == '/' || r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}

// validWorktreePath requires an absolute path with no traversal or NUL.
func validWorktreePath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	if strings.ContainsRune(path, 0) {
		return false
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
