package store

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// AddDocument inserts a searchable document and returns its id.
// The FTS mirror is maintained by triggers.
func (s *Store) AddDocument(doc Document) (int64, error) {
	if doc.Kind == "" {
		doc.Kind = "doc"
	}
	var id int64
	err := withRetry(func() error {
		res, err := s.db.Exec(
			`INSERT INTO documents (title, path, content, kind) VALUES (?, ?, ?, ?)`,
			doc.Title, doc.Path, doc.Content, doc.Kind)
		if err != nil {
			return err
		}
		id, err = res.LastInsertId()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("add document %q: %w", doc.Title, err)
	}
	return id, nil
}

// ingestKinds maps file extensions to corpus kinds. Anything else is
// skipped during ingestion.
var ingestKinds = map[string]string{
	".md":  "doc",
	".ts":  "implementation",
	".tsx": "implementation",
	".js":  "implementation",
	".jsx": "implementation",
}

// maxIngestBytes caps the content of a single ingested file. Larger
// files are truncated, not skipped, so their title still matches.
const maxIngestBytes = 256 * 1024

// IngestDirectory walks root and indexes every markdown and source file
// into the document corpus. Paths are stored relative to root, and
// re-ingesting replaces entries by path, so the corpus tracks the tree
// across restarts. Returns the number of files indexed.
func (s *Store) IngestDirectory(root string) (int, error) {
	info, err := os.Stat(root)
	if err != nil {
		return 0, fmt.Errorf("ingest %s: %w", root, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("ingest %s: not a directory", root)
	}

	count := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if name == "node_modules" || (strings.HasPrefix(name, ".") && path != root) {
				return filepath.SkipDir
			}
			return nil
		}
		kind, ok := ingestKinds[filepath.Ext(path)]
		if !ok {
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if len(data) > maxIngestBytes {
			data = data[:maxIngestBytes]
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			rel = path
		}
		if err := s.replaceDocument(Document{
			Title:   d.Name(),
			Path:    rel,
			Content: string(data),
			Kind:    kind,
		}); err != nil {
			return err
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("ingest %s: %w", root, err)
	}
	return count, nil
}

// replaceDocument swaps out any prior entry for the same path. The FTS
// mirror follows via the delete/insert triggers.
func (s *Store) replaceDocument(doc Document) error {
	err := withRetry(func() error {
		if _, err := s.db.Exec(`DELETE FROM documents WHERE path = ?`, doc.Path); err != nil {
			return err
		}
		_, err := s.db.Exec(
			`INSERT INTO documents (title, path, content, kind) VALUES (?, ?, ?, ?)`,
			doc.Title, doc.Path, doc.Content, doc.Kind)
		return err
	})
	if err != nil {
		return fmt.Errorf("replace document %q: %w", doc.Path, err)
	}
	return nil
}

// SearchDocuments runs a full-text query over the corpus, optionally
// filtered by kind, best matches first. An empty query returns the most
// recent documents instead of crashing FTS5.
func (s *Store) SearchDocuments(query, kind string, limit int) ([]DocumentHit, error) {
	if limit <= 0 {
		limit = 10
	}

	ftsQuery := sanitizeFTS(query)
	if ftsQuery == "" {
		return s.recentDocuments(kind, limit)
	}

	sqlStr := `
		SELECT d.id, d.title, d.path, d.content, d.kind, fts.rank
		FROM documents_fts fts
		JOIN documents d ON d.id = fts.rowid
		WHERE documents_fts MATCH ?
	`
	args := []any{ftsQuery}
	if kind != "" {
		sqlStr += " AND d.kind = ?"
		args = append(args, kind)
	}
	sqlStr += " ORDER BY fts.rank LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	var hits []DocumentHit
	for rows.Next() {
		var h DocumentHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Path, &h.Content, &h.Kind, &h.Rank); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

func (s *Store) recentDocuments(kind string, limit int) ([]DocumentHit, error) {
	sqlStr := `SELECT id, title, path, content, kind FROM documents`
	var args []any
	if kind != "" {
		sqlStr += " WHERE kind = ?"
		args = append(args, kind)
	}
	sqlStr += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.Query(sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("recent documents: %w", err)
	}
	defer rows.Close()

	var hits []DocumentHit
	for rows.Next() {
		var h DocumentHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Path, &h.Content, &h.Kind); err != nil {
			return nil, err
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// sanitizeFTS quotes each term so user input can never inject FTS5
// query syntax.
func sanitizeFTS(query string) string {
	var words []string
	for _, w := range strings.Fields(query) {
		w = strings.Trim(w, `"`)
		if w == "" {
			continue
		}
		words = append(words, `"`+w+`"`)
	}
	return strings.Join(words, " ")
}
