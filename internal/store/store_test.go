package store

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{DataDir: t.TempDir()})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testProject(t *testing.T, s *Store) int64 {
	t.Helper()
	id, err := s.CreateProject("demo", "/tmp/demo-repo", "main")
	if err != nil {
		t.Fatalf("create project: %v", err)
	}
	return id
}

// ─── Identities ─────────────────────────────────────────────────────────────

func TestIdentity_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	key := []byte(strings.Repeat("k", 32))
	id, err := s.CreateIdentity(key)
	if err != nil {
		t.Fatalf("CreateIdentity: %v", err)
	}

	ident, err := s.GetIdentity(id)
	if err != nil {
		t.Fatalf("GetIdentity: %v", err)
	}
	if string(ident.PublicKey) != string(key) {
		t.Error("public key mismatch")
	}
	if ident.Revoked() {
		t.Error("fresh identity should not be revoked")
	}
	if ident.LastUsedAt != nil {
		t.Error("fresh identity should have nil last_used_at")
	}
}

func TestIdentity_GetMissing(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetIdentity(999); err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestIdentity_Revoke(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.CreateIdentity([]byte(strings.Repeat("k", 32)))

	if err := s.RevokeIdentity(id); err != nil {
		t.Fatalf("RevokeIdentity: %v", err)
	}
	ident, _ := s.GetIdentity(id)
	if !ident.Revoked() {
		t.Error("identity should be revoked")
	}

	// Second revoke is a no-op, not an error.
	if err := s.RevokeIdentity(id); err != nil {
		t.Errorf("second revoke: %v", err)
	}
}

func TestIdentity_Touch(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.CreateIdentity([]byte(strings.Repeat("k", 32)))
	if err := s.TouchIdentity(id); err != nil {
		t.Fatalf("TouchIdentity: %v", err)
	}
	ident, _ := s.GetIdentity(id)
	if ident.LastUsedAt == nil {
		t.Error("last_used_at should be set after touch")
	}
}

// ─── Worktrees ──────────────────────────────────────────────────────────────

func TestWorktree_CreateAndLookup(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)

	wt, err := s.CreateWorktree(pid, "/tmp/w1", "feature/x")
	if err != nil {
		t.Fatalf("CreateWorktree: %v", err)
	}
	if !wt.IsActive {
		t.Error("new worktree should be active")
	}

	byPath, err := s.GetWorktreeByPath("/tmp/w1")
	if err != nil {
		t.Fatalf("GetWorktreeByPath: %v", err)
	}
	if byPath.ID != wt.ID || byPath.Branch != "feature/x" {
		t.Errorf("lookup mismatch: %+v", byPath)
	}
}

func TestWorktree_SecondActiveRowAtSamePathRejected(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)

	if _, err := s.CreateWorktree(pid, "/tmp/w1", "a"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.CreateWorktree(pid, "/tmp/w1", "b"); err == nil {
		t.Error("second active worktree at same path should fail")
	}
}

func TestWorktree_DeactivateFreesPath(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)

	wt, _ := s.CreateWorktree(pid, "/tmp/w1", "a")
	if err := s.DeactivateWorktree(wt.ID); err != nil {
		t.Fatalf("DeactivateWorktree: %v", err)
	}

	// Idempotent.
	if err := s.DeactivateWorktree(wt.ID); err != nil {
		t.Errorf("second deactivate: %v", err)
	}

	// The path is free for a new active worktree; history row remains.
	if _, err := s.CreateWorktree(pid, "/tmp/w1", "b"); err != nil {
		t.Errorf("reuse of deactivated path should succeed: %v", err)
	}
}

func TestWorktree_UpdateBranch(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)
	wt, _ := s.CreateWorktree(pid, "/tmp/w1", "a")

	if err := s.UpdateWorktreeBranch(wt.ID, "feature/y"); err != nil {
		t.Fatalf("UpdateWorktreeBranch: %v", err)
	}
	got, _ := s.GetWorktree(wt.ID)
	if got.Branch != "feature/y" {
		t.Errorf("branch = %q", got.Branch)
	}

	if err := s.UpdateWorktreeBranch(999, "z"); err != ErrNotFound {
		t.Errorf("missing worktree err = %v, want ErrNotFound", err)
	}
}

// ─── Tasks & workflow history ───────────────────────────────────────────────

func TestTask_Lifecycle(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)

	id, err := s.CreateTask(pid, "Add login", "OAuth login flow", "high")
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	task, err := s.GetTask(id)
	if err != nil {
		t.Fatalf("GetTask: %v", err)
	}
	if task.Status != "pending" || task.Priority != "high" {
		t.Errorf("task = %+v", task)
	}

	if err := s.UpdateTaskStatus(id, "in_progress"); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateTaskStatus(id, "completed"); err != nil {
		t.Fatal(err)
	}
	task, _ = s.GetTask(id)
	if task.Status != "completed" || task.CompletedAt == nil {
		t.Errorf("completed task = %+v", task)
	}
}

func TestTask_MetadataRoundTrip(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)
	id, _ := s.CreateTask(pid, "t", "", "")

	meta := `{"plan":{"overview":"do the thing"}}`
	if err := s.UpdateTaskMetadata(id, meta); err != nil {
		t.Fatal(err)
	}
	task, _ := s.GetTask(id)
	if task.Metadata != meta {
		t.Errorf("metadata = %q", task.Metadata)
	}
}

func TestWorkflowState_AppendOnlyLatest(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)
	taskID, _ := s.CreateTask(pid, "t", "", "")

	if _, err := s.LatestWorkflowState(taskID); err != ErrNotFound {
		t.Errorf("no history err = %v, want ErrNotFound", err)
	}

	if _, err := s.AppendWorkflowState(taskID, "planning", "plan_created", `{"currentPhase":"planning","previousPhases":[]}`, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AppendWorkflowState(taskID, "development", "transition_from_planning", `{"currentPhase":"development","previousPhases":["planning"]}`, ""); err != nil {
		t.Fatal(err)
	}

	latest, err := s.LatestWorkflowState(taskID)
	if err != nil {
		t.Fatalf("LatestWorkflowState: %v", err)
	}
	if latest.Phase != "development" {
		t.Errorf("latest phase = %q, want development", latest.Phase)
	}

	history, err := s.WorkflowHistory(taskID)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 || history[0].Phase != "planning" {
		t.Errorf("history = %+v", history)
	}
}

// ─── Screenshots ────────────────────────────────────────────────────────────

func TestScreenshot_CreateAndList(t *testing.T) {
	s := newTestStore(t)
	pid := testProject(t, s)
	wt, _ := s.CreateWorktree(pid, "/tmp/w1", "a")

	_, err := s.CreateScreenshot(Screenshot{
		WorktreeID: wt.ID,
		Name:       "login-page",
		Path:       "/tmp/shots/login-page.png",
		URL:        "http://localhost:3000/login",
		Viewport:   "1280x720",
		FullPage:   true,
	})
	if err != nil {
		t.Fatalf("CreateScreenshot: %v", err)
	}

	shots, err := s.ListScreenshots(wt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(shots) != 1 || !shots[0].FullPage || shots[0].Name != "login-page" {
		t.Errorf("shots = %+v", shots)
	}
}

// ─── Documents & search ─────────────────────────────────────────────────────

func TestDocuments_FTSSearch(t *testing.T) {
	s := newTestStore(t)

	docs := []Document{
		{Title: "Auth middleware", Path: "docs/auth.md", Content: "ed25519 signature verification for inbound requests", Kind: "doc"},
		{Title: "Login handler", Path: "src/login.ts", Content: "session cookie issued after password check", Kind: "implementation"},
		{Title: "Deploy guide", Path: "docs/deploy.md", Content: "kubernetes rollout instructions", Kind: "doc"},
	}
	for _, d := range docs {
		if _, err := s.AddDocument(d); err != nil {
			t.Fatal(err)
		}
	}

	hits, err := s.SearchDocuments("signature verification", "", 10)
	if err != nil {
		t.Fatalf("SearchDocuments: %v", err)
	}
	if len(hits) == 0 || hits[0].Title != "Auth middleware" {
		t.Errorf("hits = %+v", hits)
	}

	// Kind filter.
	hits, err = s.SearchDocuments("session", "implementation", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Kind != "implementation" {
		t.Errorf("kind-filtered hits = %+v", hits)
	}
}

func TestDocuments_EmptyQueryFallsBackToRecent(t *testing.T) {
	s := newTestStore(t)
	s.AddDocument(Document{Title: "a", Path: "a.md", Content: "alpha"})
	s.AddDocument(Document{Title: "b", Path: "b.md", Content: "beta"})

	hits, err := s.SearchDocuments("   ", "", 10)
	if err != nil {
		t.Fatalf("empty query should not error: %v", err)
	}
	if len(hits) != 2 || hits[0].Title != "b" {
		t.Errorf("recent fallback hits = %+v", hits)
	}
}

func TestDocuments_QuerySyntaxCannotInject(t *testing.T) {
	s := newTestStore(t)
	s.AddDocument(Document{Title: "a", Path: "a.md", Content: "alpha"})

	// FTS5 operators in user input must be treated as literals.
	if _, err := s.SearchDocuments(`alpha AND NOT "`, "", 10); err != nil {
		t.Errorf("operator-laden query should not error: %v", err)
	}
}

func TestDocuments_IngestDirectory(t *testing.T) {
	s := newTestStore(t)

	root := t.TempDir()
	writeFile := func(rel, content string) {
		t.Helper()
		path := filepath.Join(root, rel)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	writeFile("docs/auth.md", "signature verification uses ed25519 keys")
	writeFile("src/session.ts", "export class SessionRegistry {}")
	writeFile("README.md", "project overview")
	writeFile("assets/logo.png", "not text")
	writeFile("node_modules/pkg/index.js", "must be skipped")
	writeFile(".git/config", "must be skipped")

	n, err := s.IngestDirectory(root)
	if err != nil {
		t.Fatalf("IngestDirectory: %v", err)
	}
	if n != 3 {
		t.Errorf("indexed = %d, want 3", n)
	}

	hits, err := s.SearchDocuments("ed25519", "doc", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Path != filepath.Join("docs", "auth.md") {
		t.Errorf("doc hits = %+v", hits)
	}

	hits, err = s.SearchDocuments("SessionRegistry", "implementation", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Title != "session.ts" {
		t.Errorf("implementation hits = %+v", hits)
	}

	if hits, _ := s.SearchDocuments("skipped", "", 10); len(hits) != 0 {
		t.Errorf("excluded trees leaked into the corpus: %+v", hits)
	}
}

func TestDocuments_ReingestReplacesByPath(t *testing.T) {
	s := newTestStore(t)

	root := t.TempDir()
	path := filepath.Join(root, "guide.md")
	if err := os.WriteFile(path, []byte("first edition"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IngestDirectory(root); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("second edition"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := s.IngestDirectory(root); err != nil {
		t.Fatal(err)
	}

	hits, err := s.SearchDocuments("edition", "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("want a single corpus entry after re-ingest, got %d", len(hits))
	}
	if !strings.Contains(hits[0].Content, "second") {
		t.Errorf("content = %q, want the re-ingested edition", hits[0].Content)
	}
}

func TestDocuments_IngestMissingDirectory(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.IngestDirectory(filepath.Join(t.TempDir(), "absent")); err == nil {
		t.Error("want error for missing directory")
	}
}

// ─── Retry helper ───────────────────────────────────────────────────────────

func TestIsBusyErr(t *testing.T) {
	if isBusyErr(nil) {
		t.Error("nil is not busy")
	}
	if !isBusyErr(errTest("database is locked (5) (SQLITE_BUSY)")) {
		t.Error("busy error not recognized")
	}
	if isBusyErr(errTest("UNIQUE constraint failed")) {
		t.Error("constraint violation must not be retried")
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }

// Sanity: timestamps are RFC3339 UTC.
func TestNowFormat(t *testing.T) {
	if _, err := time.Parse(time.RFC3339, now()); err != nil {
		t.Errorf("now() = %q not RFC3339: %v", now(), err)
	}
}
