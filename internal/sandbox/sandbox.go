// Package sandbox runs allow-listed development commands inside active
// worktrees. Validation happens before any process spawns; a failing
// command is a result, not an error — only infra failures surface as errors.
package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/config"
	"github.com/dconley/agentforge/internal/store"
)

var timeNow = time.Now

// denyChars reject an argument outright. Argument-array execution never
// reaches a shell, but these characters have no business in tool input.
const denyChars = ";&|`$(){}[]<>"

// ExecResult is the outcome of one sandboxed command.
type ExecResult struct {
	Success         bool   `json:"success"`
	ExitCode        int    `json:"exitCode"`
	Stdout          string `json:"stdout"`
	Stderr          string `json:"stderr"`
	ExecutionTimeMs int64  `json:"executionTimeMs"`
	TimedOut        bool   `json:"timedOut,omitempty"`
}

// Sandbox validates and executes commands for active worktrees.
type Sandbox struct {
	store       *store.Store
	mu          sync.RWMutex
	allowed     map[string]bool
	timeout     time.Duration
	testTimeout time.Duration
	maxBuffer   int64
	logger      *slog.Logger
}

func New(st *store.Store, cfg config.SandboxConfig, logger *slog.Logger) *Sandbox {
	if logger == nil {
		logger = slog.Default()
	}
	allowed := make(map[string]bool, len(cfg.AllowedCommands))
	for _, c := range cfg.AllowedCommands {
		allowed[c] = true
	}
	return &Sandbox{
		store:       st,
		allowed:     allowed,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
		testTimeout: time.Duration(cfg.TestTimeoutSecs) * time.Second,
		maxBuffer:   cfg.MaxBufferBytes,
		logger:      logger,
	}
}

// SetAllowedCommands replaces the executable allow-list. Used by the
// config watcher to apply edits without a restart.
func (s *Sandbox) SetAllowedCommands(commands []string) {
	allowed := make(map[string]bool, len(commands))
	for _, c := range commands {
		allowed[c] = true
	}
	s.mu.Lock()
	s.allowed = allowed
	s.mu.Unlock()
}

// ValidateCommand checks the command name against the allow-list and each
// argument against the metacharacter deny-set.
func (s *Sandbox) ValidateCommand(command string, args []string) error {
	s.mu.RLock()
	ok := s.allowed[command]
	s.mu.RUnlock()
	if !ok {
		return apperr.Ef(apperr.InvalidCommand, "command %q is not allowed", command)
	}
	for _, arg := range args {
		if strings.ContainsAny(arg, denyChars) || strings.ContainsRune(arg, 0) {
			return apperr.Ef(apperr.InvalidCommand, "argument %q contains forbidden characters", arg)
		}
	}
	return nil
}

// ValidatePath requires an absolute path with no traversal and no NUL.
func ValidatePath(path string) error {
	if path == "" || !strings.HasPrefix(path, "/") {
		return apperr.Ef(apperr.InvalidPath, "path must be absolute: %q", path)
	}
	if strings.ContainsRune(path, 0) {
		return apperr.E(apperr.InvalidPath, "path contains NUL byte")
	}
	for _, part := range strings.Split(path, "/") {
		if part == ".." {
			return apperr.Ef(apperr.InvalidPath, "path must not traverse upward: %q", path)
		}
	}
	return nil
}

// ExecuteCommand runs an allow-listed command inside an active worktree.
// Timeouts and non-zero exits come back as a failed result; spawn and
// lookup failures come back as errors.
func (s *Sandbox) ExecuteCommand(ctx context.Context, worktreePath, command string, args []string) (*ExecResult, error) {
	if err := ValidatePath(worktreePath); err != nil {
		return nil, err
	}
	if err := s.ValidateCommand(command, args); err != nil {
		return nil, err
	}
	if err := s.requireActiveWorktree(worktreePath); err != nil {
		return nil, err
	}
	return s.run(ctx, worktreePath, command, args, s.timeout)
}

func (s *Sandbox) run(ctx context.Context, dir, command string, args []string, timeout time.Duration) (*ExecResult, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir

	var stdout, stderr boundedBuffer
	stdout.limit = s.maxBuffer
	stderr.limit = s.maxBuffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := timeNow()
	err := cmd.Run()
	elapsed := timeNow().Sub(start).Milliseconds()

	result := &ExecResult{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		ExecutionTimeMs: elapsed,
	}

	switch {
	case ctx.Err() == context.DeadlineExceeded:
		result.Success = false
		result.ExitCode = -1
		result.TimedOut = true
		s.logger.Warn("sandboxed command timed out", "command", command, "timeout", timeout)
		return result, nil
	case err == nil:
		result.Success = true
		result.ExitCode = 0
		return result, nil
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Success = false
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		// Spawn failure, missing binary, bad directory: infra error.
		return nil, apperr.Wrap(apperr.Internal, "spawn "+command, err)
	}
}

func (s *Sandbox) requireActiveWorktree(path string) error {
	wt, err := s.store.GetWorktreeByPath(path)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Ef(apperr.WorktreeNotFound, "no worktree at %q", path)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load worktree", err)
	}
	if !wt.IsActive {
		return apperr.Ef(apperr.WorktreeInactive, "worktree at %q is inactive", path)
	}
	return nil
}

// boundedBuffer keeps at most limit bytes and silently drops the rest.
type boundedBuffer struct {
	buf   strings.Builder
	limit int64
}

func (b *boundedBuffer) Write(p []byte) (int, error) {
	remaining := b.limit - int64(b.buf.Len())
	if remaining > 0 {
		if int64(len(p)) > remaining {
			b.buf.Write(p[:remaining])
		} else {
			b.buf.Write(p)
		}
	}
	// Report full consumption so the child never sees a write error.
	return len(p), nil
}

func (b *boundedBuffer) String() string { return b.buf.String() }
