package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CreateWorktree inserts an active worktree row. The partial unique
// index on (path WHERE is_active) rejects a second active row at the
// same path.
func (s *Store) CreateWorktree(projectID int64, path, branch string) (*Worktree, error) {
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(
			`INSERT INTO worktrees (project_id, path, branch, is_active, created_at)
			 VALUES (?, ?, ?, 1, ?)`,
			projectID, path, branch, now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create worktree at %s: %w", path, err)
	}
	return s.GetWorktree(id)
}

// GetWorktree returns the worktree row for id.
func (s *Store) GetWorktree(id int64) (*Worktree, error) {
	return s.scanWorktree(s.db.QueryRow(
		`SELECT id, project_id, path, branch, is_active, created_at
		 FROM worktrees WHERE id = ?`, id))
}

// GetWorktreeByPath returns the most recent worktree row for a path,
// active or not.
func (s *Store) GetWorktreeByPath(path string) (*Worktree, error) {
	return s.scanWorktree(s.db.QueryRow(
		`SELECT id, project_id, path, branch, is_active, created_at
		 FROM worktrees WHERE path = ?
		 ORDER BY is_active DESC, id DESC LIMIT 1`, path))
}

// UpdateWorktreeBranch records a branch switch inside the worktree.
func (s *Store) UpdateWorktreeBranch(id int64, branch string) error {
	return withRetry(func() error {
		res, err := s.db.Exec(`UPDATE worktrees SET branch = ? WHERE id = ?`, branch, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// DeactivateWorktree soft-deletes the worktree row. Idempotent: a row
// that is already inactive stays inactive.
func (s *Store) DeactivateWorktree(id int64) error {
	return withRetry(func() error {
		_, err := s.db.Exec(`UPDATE worktrees SET is_active = 0 WHERE id = ?`, id)
		return err
	})
}

func (s *Store) scanWorktree(row *sql.Row) (*Worktree, error) {
	var w Worktree
	var active int
	err := row.Scan(&w.ID, &w.ProjectID, &w.Path, &w.Branch, &active, &w.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan worktree: %w", err)
	}
	w.IsActive = active != 0
	return &w, nil
}
