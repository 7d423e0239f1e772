// Package store implements the relational persistence collaborator.
//
// It uses SQLite (pure-Go driver) with WAL mode. All stateful
// subsystems — auth identities, projects, worktrees, tasks, workflow
// history, screenshots, and the searchable document corpus — read and
// write through this package. Writes that hit a busy database are
// retried with exponential backoff; everything else surfaces as a
// wrapped error.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeNow is swapped in tests for deterministic timestamps.
var timeNow = time.Now

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

// ─── Types ───────────────────────────────────────────────────────────────────

// Identity is an authentication principal with one active signing key.
type Identity struct {
	ID         int64   `json:"id"`
	PublicKey  []byte  `json:"-"`
	RevokedAt  *string `json:"revoked_at,omitempty"`
	LastUsedAt *string `json:"last_used_at,omitempty"`
}

// Revoked reports whether the identity's key has been revoked.
func (i *Identity) Revoked() bool { return i.RevokedAt != nil }

// Project owns worktrees and tasks.
type Project struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	RepoPath   string `json:"repo_path"`
	MainBranch string `json:"main_branch"`
}

// Worktree is an isolated checked-out working copy. Rows are never
// deleted, only deactivated, preserving history.
type Worktree struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Path      string `json:"path"`
	Branch    string `json:"branch"`
	IsActive  bool   `json:"is_active"`
	CreatedAt string `json:"created_at"`
}

// Task is a unit of agent work moving through the delivery lifecycle.
type Task struct {
	ID          int64   `json:"id"`
	ProjectID   int64   `json:"project_id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Status      string  `json:"status"` // pending | in_progress | completed
	Priority    string  `json:"priority"`
	Metadata    string  `json:"metadata"` // opaque JSON at this boundary
	CompletedAt *string `json:"completed_at,omitempty"`
}

// WorkflowState is one append-only row of a task's phase history.
// The current state is the most recently updated row.
type WorkflowState struct {
	ID        int64  `json:"id"`
	TaskID    int64  `json:"task_id"`
	Phase     string `json:"phase"`
	Step      string `json:"step"`
	State     string `json:"state"`    // JSON: {currentPhase, previousPhases}
	Metadata  string `json:"metadata"` // JSON, free-form
	UpdatedAt string `json:"updated_at"`
}

// Screenshot records a captured page image and where it was stored.
type Screenshot struct {
	ID         int64  `json:"id"`
	WorktreeID int64  `json:"worktree_id"`
	Name       string `json:"name"`
	Path       string `json:"path"`
	URL        string `json:"url"`
	Viewport   string `json:"viewport"`
	FullPage   bool   `json:"full_page"`
	CreatedAt  string `json:"created_at"`
}

// Document is one searchable entry of the docs/implementation corpus.
type Document struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	Path    string `json:"path"`
	Content string `json:"content"`
	Kind    string `json:"kind"` // doc | implementation
}

// DocumentHit is a Document with its FTS rank.
type DocumentHit struct {
	Document
	Rank float64 `json:"rank"`
}

// ─── Config & Store ──────────────────────────────────────────────────────────

// Config holds store configuration.
type Config struct {
	DataDir string
}

// Store is the SQLite-backed persistence layer.
type Store struct {
	db *sql.DB
}

// New opens (creating if needed) the database under cfg.DataDir and
// runs migrations.
func New(cfg Config) (*Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("store: create data dir: %w", err)
	}

	dbPath := filepath.Join(cfg.DataDir, "agentforge.db")
	db, err := openDB("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("store: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("store: migration: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ─── Migrations ──────────────────────────────────────────────────────────────

func (s *Store) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS identities (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			public_key   BLOB NOT NULL,
			revoked_at   TEXT,
			last_used_at TEXT
		);

		CREATE TABLE IF NOT EXISTS projects (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			name        TEXT NOT NULL,
			repo_path   TEXT NOT NULL DEFAULT '',
			main_branch TEXT NOT NULL DEFAULT 'main'
		);

		CREATE TABLE IF NOT EXISTS worktrees (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			path       TEXT NOT NULL,
			branch     TEXT NOT NULL,
			is_active  INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		-- Only one active worktree per path; inactive history rows may
		-- share the path.
		CREATE UNIQUE INDEX IF NOT EXISTS idx_worktrees_active_path
			ON worktrees(path) WHERE is_active = 1;

		CREATE TABLE IF NOT EXISTS tasks (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			project_id   INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			status       TEXT NOT NULL DEFAULT 'pending',
			priority     TEXT NOT NULL DEFAULT 'medium',
			metadata     TEXT NOT NULL DEFAULT '{}',
			completed_at TEXT
		);

		CREATE TABLE IF NOT EXISTS workflow_states (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			task_id    INTEGER NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			phase      TEXT NOT NULL,
			step       TEXT NOT NULL,
			state      TEXT NOT NULL DEFAULT '{}',
			metadata   TEXT NOT NULL DEFAULT '{}',
			updated_at TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE INDEX IF NOT EXISTS idx_workflow_states_task
			ON workflow_states(task_id, updated_at, id);

		CREATE TABLE IF NOT EXISTS screenshots (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			worktree_id INTEGER NOT NULL REFERENCES worktrees(id) ON DELETE CASCADE,
			name        TEXT NOT NULL,
			path        TEXT NOT NULL,
			url         TEXT NOT NULL,
			viewport    TEXT NOT NULL DEFAULT '',
			full_page   INTEGER NOT NULL DEFAULT 0,
			created_at  TEXT NOT NULL DEFAULT (datetime('now'))
		);

		CREATE TABLE IF NOT EXISTS documents (
			id      INTEGER PRIMARY KEY AUTOINCREMENT,
			title   TEXT NOT NULL,
			path    TEXT NOT NULL,
			content TEXT NOT NULL,
			kind    TEXT NOT NULL DEFAULT 'doc'
		);

		CREATE VIRTUAL TABLE IF NOT EXISTS documents_fts USING fts5(
			title, content,
			content='documents',
			content_rowid='id'
		);

		CREATE TRIGGER IF NOT EXISTS documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts(rowid, title, content)
			VALUES (new.id, new.title, new.content);
		END;

		CREATE TRIGGER IF NOT EXISTS documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, content)
			VALUES ('delete', old.id, old.title, old.content);
		END;

		CREATE TRIGGER IF NOT EXISTS documents_au AFTER UPDATE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, content)
			VALUES ('delete', old.id, old.title, old.content);
			INSERT INTO documents_fts(rowid, title, content)
			VALUES (new.id, new.title, new.content);
		END;
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// now returns the canonical timestamp format used across tables.
func now() string {
	return timeNow().UTC().Format(time.RFC3339)
}
