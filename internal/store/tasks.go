package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// CreateTask inserts a pending task and returns its id.
func (s *Store) CreateTask(projectID int64, title, description, priority string) (int64, error) {
	if priority == "" {
		priority = "medium"
	}
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(
			`INSERT INTO tasks (project_id, title, description, status, priority, metadata)
			 VALUES (?, ?, ?, 'pending', ?, '{}')`,
			projectID, title, description, priority)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create task: %w", err)
	}
	return id, nil
}

// GetTask returns the task row for id.
func (s *Store) GetTask(id int64) (*Task, error) {
	row := s.db.QueryRow(
		`SELECT id, project_id, title, description, status, priority, metadata, completed_at
		 FROM tasks WHERE id = ?`, id)

	var t Task
	err := row.Scan(&t.ID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.Metadata, &t.CompletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task %d: %w", id, err)
	}
	return &t, nil
}

// UpdateTaskMetadata replaces the task's opaque metadata JSON.
func (s *Store) UpdateTaskMetadata(id int64, metadata string) error {
	return withRetry(func() error {
		res, err := s.db.Exec(`UPDATE tasks SET metadata = ? WHERE id = ?`, metadata, id)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// UpdateTaskStatus moves the task's status. When the new status is
// "completed" the completion timestamp is stamped as well.
func (s *Store) UpdateTaskStatus(id int64, status string) error {
	return withRetry(func() error {
		var res sql.Result
		var err error
		if status == "completed" {
			res, err = s.db.Exec(
				`UPDATE tasks SET status = ?, completed_at = ? WHERE id = ?`, status, now(), id)
		} else {
			res, err = s.db.Exec(`UPDATE tasks SET status = ? WHERE id = ?`, status, id)
		}
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}
