// Package worktree manages isolated git working copies: creation, branching,
// committing, pull requests, and cleanup. Every git invocation goes through
// a GitRunner with an argument array and a hard timeout.
package worktree

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/store"
)

// CommitTypes are the accepted values for a commit's Type trailer.
var CommitTypes = map[string]bool{"chore": true, "bug": true, "feature": true}

// Manager owns the worktree lifecycle for all projects.
type Manager struct {
	store  *store.Store
	git    GitRunner
	host   VCSHost
	logger *slog.Logger
}

func NewManager(st *store.Store, git GitRunner, host VCSHost, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: st, git: git, host: host, logger: logger}
}

// Create adds a native git worktree for the project at path, checked out
// onto a new branch rooted at baseBranch (project main branch when empty),
// and records it as active.
func (m *Manager) Create(ctx context.Context, projectID int64, path, branch, baseBranch string) (*store.Worktree, error) {
	project, err := m.getProject(projectID)
	if err != nil {
		return nil, err
	}
	if !validWorktreePath(path) {
		return nil, apperr.Ef(apperr.InvalidPath, "worktree path must be absolute without traversal: %q", path)
	}
	if !validBranchName(branch) {
		return nil, apperr.Ef(apperr.InvalidCommand, "invalid branch name %q", branch)
	}
	if baseBranch == "" {
		baseBranch = project.MainBranch
	}
	if !validBranchName(baseBranch) {
		return nil, apperr.Ef(apperr.InvalidCommand, "invalid base branch name %q", baseBranch)
	}

	if _, err := m.git.Run(ctx, project.RepoPath, "worktree", "add", "-b", branch, path, baseBranch); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create worktree", err)
	}

	wt, err := m.store.CreateWorktree(projectID, path, branch)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "record worktree", err)
	}
	m.logger.Info("worktree created", "project_id", projectID, "path", path, "branch", branch)
	return wt, nil
}

// CreateBranch creates and switches to a new branch inside an active
// worktree and updates its record.
func (m *Manager) CreateBranch(ctx context.Context, path, name, baseBranch string) error {
	wt, err := m.getActiveWorktree(path)
	if err != nil {
		return err
	}
	if _, err := m.getProject(wt.ProjectID); err != nil {
		return err
	}
	if !validBranchName(name) {
		return apperr.Ef(apperr.InvalidCommand, "invalid branch name %q", name)
	}

	args := []string{"checkout", "-b", name}
	if baseBranch != "" {
		if !validBranchName(baseBranch) {
			return apperr.Ef(apperr.InvalidCommand, "invalid base branch name %q", baseBranch)
		}
		args = append(args, baseBranch)
	}
	if _, err := m.git.Run(ctx, path, args...); err != nil {
		return apperr.Wrap(apperr.Internal, "create branch", err)
	}

	if err := m.store.UpdateWorktreeBranch(wt.ID, name); err != nil {
		return apperr.Wrap(apperr.Internal, "record branch", err)
	}
	m.logger.Info("branch created", "path", path, "branch", name)
	return nil
}

// Commit stages everything in the worktree and commits with the fixed
// auditable message template. Returns the new commit hash.
func (m *Manager) Commit(ctx context.Context, path, phase, description, commitType string, taskID int64, adwID string) (string, error) {
	wt, err := m.getActiveWorktree(path)
	if err != nil {
		return "", err
	}
	if _, err := m.getProject(wt.ProjectID); err != nil {
		return "", err
	}
	if !CommitTypes[commitType] {
		return "", apperr.Ef(apperr.InvalidCommand, "commit type must be chore, bug, or feature, got %q", commitType)
	}

	status, err := m.git.Run(ctx, path, "status", "--porcelain")
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "inspect worktree", err)
	}
	if strings.TrimSpace(status) == "" {
		return "", apperr.E(apperr.NoChanges, "nothing to commit")
	}

	if _, err := m.git.Run(ctx, path, "add", "-A"); err != nil {
		return "", apperr.Wrap(apperr.Internal, "stage changes", err)
	}

	message := commitMessage(phase, description, commitType, taskID, adwID)
	if _, err := m.git.Run(ctx, path, "commit", "-m", message); err != nil {
		return "", apperr.Wrap(apperr.Internal, "commit changes", err)
	}

	sha, err := m.git.Run(ctx, path, "rev-parse", "HEAD")
	if err != nil {
		return "", apperr.Wrap(apperr.Internal, "resolve commit", err)
	}
	m.logger.Info("changes committed", "path", path, "commit", sha, "task_id", taskID)
	return sha, nil
}

// commitMessage renders the audit template every commit must carry.
func commitMessage(phase, description, commitType string, taskID int64, adwID string) string {
	return fmt.Sprintf(`%s: %s

Type: %s
Task ID: %d
ADW ID: %s

🤖 Generated with Claude Code
Co-Authored-By: Claude <noreply@anthropic.com>`, phase, description, commitType, taskID, adwID)
}

// Cleanup removes the physical worktree and deactivates its record. It is
// idempotent: a missing directory or already-inactive row still succeeds.
func (m *Manager) Cleanup(ctx context.Context, path string) error {
	wt, err := m.store.GetWorktreeByPath(path)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.Ef(apperr.WorktreeNotFound, "no worktree at %q", path)
	}
	if err != nil {
		return apperr.Wrap(apperr.Internal, "load worktree", err)
	}

	project, err := m.getProject(wt.ProjectID)
	if err != nil {
		return err
	}

	if _, err := m.git.Run(ctx, project.RepoPath, "worktree", "remove", "--force", path); err != nil {
		// Already gone on disk is fine; anything else is not.
		if !isMissingWorktree(err) {
			return apperr.Wrap(apperr.Internal, "remove worktree", err)
		}
	}

	if err := m.store.DeactivateWorktree(wt.ID); err != nil {
		return apperr.Wrap(apperr.Internal, "deactivate worktree", err)
	}
	m.logger.Info("worktree cleaned up", "path", path)
	return nil
}

func isMissingWorktree(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "is not a working tree") ||
		strings.Contains(msg, "No such file or directory") ||
		strings.Contains(msg, "not a valid path")
}

func (m *Manager) getProject(projectID int64) (*store.Project, error) {
	project, err := m.store.GetProject(projectID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Ef(apperr.ProjectNotFound, "project %d not found", projectID)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load project", err)
	}
	if project.RepoPath == "" {
		return nil, apperr.Ef(apperr.ProjectNoRepo, "project %d has no repository path", projectID)
	}
	return project, nil
}

func (m *Manager) getActiveWorktree(path string) (*store.Worktree, error) {
	wt, err := m.store.GetWorktreeByPath(path)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Ef(apperr.WorktreeNotFound, "no worktree at %q", path)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load worktree", err)
	}
	if !wt.IsActive {
		return nil, apperr.Ef(apperr.WorktreeInactive, "worktree at %q is inactive", path)
	}
	return wt, nil
}
