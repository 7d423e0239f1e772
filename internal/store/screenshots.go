package store

import "fmt"

// CreateScreenshot records a captured screenshot and its storage path.
func (s *Store) CreateScreenshot(sc Screenshot) (int64, error) {
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(
			`INSERT INTO screenshots (worktree_id, name, path, url, viewport, full_page, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			sc.WorktreeID, sc.Name, sc.Path, sc.URL, sc.Viewport, boolToInt(sc.FullPage), now())
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("create screenshot %q: %w", sc.Name, err)
	}
	return id, nil
}

// ListScreenshots returns all screenshots for a worktree, newest first.
func (s *Store) ListScreenshots(worktreeID int64) ([]Screenshot, error) {
	rows, err := s.db.Query(
		`SELECT id, worktree_id, name, path, url, viewport, full_page, created_at
		 FROM screenshots WHERE worktree_id = ? ORDER BY id DESC`, worktreeID)
	if err != nil {
		return nil, fmt.Errorf("list screenshots: %w", err)
	}
	defer rows.Close()

	var out []Screenshot
	for rows.Next() {
		var sc Screenshot
		var fullPage int
		if err := rows.Scan(&sc.ID, &sc.WorktreeID, &sc.Name, &sc.Path, &sc.URL,
			&sc.Viewport, &fullPage, &sc.CreatedAt); err != nil {
			return nil, err
		}
		sc.FullPage = fullPage != 0
		out = append(out, sc)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
