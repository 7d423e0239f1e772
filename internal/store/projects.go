package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CreateProject inserts a project and returns its id.
func (s *Store) CreateProject(name, repoPath, mainBranch string) (int64, error) {
	if mainBranch == "" {
		mainBranch = "main"
	}
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(
			`INSERT INTO projects (name, repo_path, main_branch) VALUES (?, ?, ?)`,
			name, repoPath, mainBranch)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create project: %w", err)
	}
	return id, nil
}

// GetProject returns the project row for id.
func (s *Store) GetProject(id int64) (*Project, error) {
	row := s.db.QueryRow(
		`SELECT id, name, repo_path, main_branch FROM projects WHERE id = ?`, id)

	var p Project
	err := row.Scan(&p.ID, &p.Name, &p.RepoPath, &p.MainBranch)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get project %d: %w", id, err)
	}
	return &p, nil
}
