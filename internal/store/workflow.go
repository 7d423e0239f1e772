package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// AppendWorkflowState inserts a new history row. History is append-only
// by contract: transitions never mutate prior rows, so the full phase
// trail of a task is always reconstructible.
func (s *Store) AppendWorkflowState(taskID int64, phase, step, state, metadata string) (int64, error) {
	if state == "" {
		state = "{}"
	}
	if metadata == "" {
		metadata = "{}"
	}
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(
			`INSERT INTO workflow_states (task_id, phase, step, state, metadata, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			taskID, phase, step, state, metadata, now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("append workflow state for task %d: %w", taskID, err)
	}
	return id, nil
}

// LatestWorkflowState returns the current state row for a task — the
// most recently inserted one. ErrNotFound means the task has no
// workflow history yet.
func (s *Store) LatestWorkflowState(taskID int64) (*WorkflowState, error) {
	row := s.db.QueryRow(
		`SELECT id, task_id, phase, step, state, metadata, updated_at
		 FROM workflow_states WHERE task_id = ?
		 ORDER BY updated_at DESC, id DESC LIMIT 1`, taskID)

	var ws WorkflowState
	err := row.Scan(&ws.ID, &ws.TaskID, &ws.Phase, &ws.Step, &ws.State, &ws.Metadata, &ws.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest workflow state for task %d: %w", taskID, err)
	}
	return &ws, nil
}

// WorkflowHistory returns all state rows for a task in insertion order.
func (s *Store) WorkflowHistory(taskID int64) ([]WorkflowState, error) {
	rows, err := s.db.Query(
		`SELECT id, task_id, phase, step, state, metadata, updated_at
		 FROM workflow_states WHERE task_id = ?
		 ORDER BY id ASC`, taskID)
	if err != nil {
		return nil, fmt.Errorf("workflow history for task %d: %w", taskID, err)
	}
	defer rows.Close()

	var history []WorkflowState
	for rows.Next() {
		var ws WorkflowState
		if err := rows.Scan(&ws.ID, &ws.TaskID, &ws.Phase, &ws.Step, &ws.State, &ws.Metadata, &ws.UpdatedAt); err != nil {
			return nil, err
		}
		history = append(history, ws)
	}
	return history, rows.Err()
}
