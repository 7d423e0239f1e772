package sandbox

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
)

// fakeBrowser serves canned PNG bytes or a scripted failure.
type fakeBrowser struct {
	png []byte
	err error

	url      string
	viewport string
	fullPage bool
}

func (f *fakeBrowser) Screenshot(ctx context.Context, url, viewport string, fullPage bool) ([]byte, error) {
	f.url, f.viewport, f.fullPage = url, viewport, fullPage
	if f.err != nil {
		return nil, f.err
	}
	return f.png, nil
}

func TestCaptureScreenshot(t *testing.T) {
	s, st, wtPath := newTestSandbox(t)
	browser := &fakeBrowser{png: []byte("\x89PNG fake")}

	sc, err := s.CaptureScreenshot(context.Background(), browser, ScreenshotRequest{
		WorktreePath: wtPath,
		URL:          "http://localhost:3000/login",
		Name:         "login-page",
		Viewport:     "1280x720",
		FullPage:     true,
	})
	if err != nil {
		t.Fatalf("CaptureScreenshot: %v", err)
	}
	if browser.url != "http://localhost:3000/login" || !browser.fullPage || browser.viewport != "1280x720" {
		t.Errorf("browser got url=%q viewport=%q fullPage=%v", browser.url, browser.viewport, browser.fullPage)
	}

	// PNG persisted under the worktree.
	data, err := os.ReadFile(sc.Path)
	if err != nil {
		t.Fatalf("read %s: %v", sc.Path, err)
	}
	if string(data) != "\x89PNG fake" {
		t.Error("persisted bytes differ")
	}
	if !strings.HasPrefix(sc.Path, wtPath) {
		t.Errorf("screenshot path %q escapes worktree", sc.Path)
	}

	// Row recorded with metadata.
	wt, err := st.GetWorktreeByPath(wtPath)
	if err != nil {
		t.Fatal(err)
	}
	rows, err := st.ListScreenshots(wt.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "login-page" || !rows[0].FullPage || rows[0].Viewport != "1280x720" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestCaptureScreenshot_NavigationFailureIsTyped(t *testing.T) {
	s, _, wtPath := newTestSandbox(t)
	browser := &fakeBrowser{err: &NavigationError{URL: "http://down", Err: errors.New("connection refused")}}

	_, err := s.CaptureScreenshot(context.Background(), browser, ScreenshotRequest{
		WorktreePath: wtPath, URL: "http://down", Name: "x",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var nav *NavigationError
	if !errors.As(err, &nav) {
		t.Error("navigation failure should stay identifiable")
	}
	if !strings.Contains(err.Error(), "navigation") {
		t.Errorf("err = %v", err)
	}
}

func TestCaptureScreenshot_CaptureFailureIsDistinct(t *testing.T) {
	s, _, wtPath := newTestSandbox(t)
	browser := &fakeBrowser{err: errors.New("renderer crashed")}

	_, err := s.CaptureScreenshot(context.Background(), browser, ScreenshotRequest{
		WorktreePath: wtPath, URL: "http://up", Name: "x",
	})
	if err == nil {
		t.Fatal("expected error")
	}
	var nav *NavigationError
	if errors.As(err, &nav) {
		t.Error("plain capture failure must not look like a navigation failure")
	}
	if !strings.Contains(err.Error(), "capture") {
		t.Errorf("err = %v", err)
	}
}

func TestCaptureScreenshot_Validation(t *testing.T) {
	s, _, wtPath := newTestSandbox(t)
	browser := &fakeBrowser{png: []byte("png")}
	ctx := context.Background()

	if _, err := s.CaptureScreenshot(ctx, browser, ScreenshotRequest{
		WorktreePath: "relative/path", URL: "http://x", Name: "n",
	}); err == nil {
		t.Error("relative worktree path should fail")
	}
	if _, err := s.CaptureScreenshot(ctx, browser, ScreenshotRequest{
		WorktreePath: wtPath, URL: "", Name: "n",
	}); err == nil {
		t.Error("missing url should fail")
	}
	if _, err := s.CaptureScreenshot(ctx, browser, ScreenshotRequest{
		WorktreePath: wtPath, URL: "http://x", Name: "",
	}); err == nil {
		t.Error("missing name should fail")
	}
}

func TestCaptureScreenshot_QueryParameterURL(t *testing.T) {
	s, _, wtPath := newTestSandbox(t)
	browser := &fakeBrowser{png: []byte("png")}

	// Multi-parameter query strings carry "&" and are still valid
	// capture targets; the deny-set applies to command arguments, not
	// to the navigation URL.
	target := "http://localhost:3000/page?a=1&b=2&items[]=3"
	sc, err := s.CaptureScreenshot(context.Background(), browser, ScreenshotRequest{
		WorktreePath: wtPath, URL: target, Name: "search-results",
	})
	if err != nil {
		t.Fatalf("CaptureScreenshot: %v", err)
	}
	if browser.url != target || sc.URL != target {
		t.Errorf("url = %q / %q, want %q", browser.url, sc.URL, target)
	}
}

func TestValidateURL(t *testing.T) {
	valid := []string{
		"http://localhost:3000/page?a=1&b=2",
		"https://app.example.com/dash(beta)?q[]=x",
		"http://127.0.0.1:8080/",
	}
	for _, u := range valid {
		if err := ValidateURL(u); err != nil {
			t.Errorf("ValidateURL(%q) = %v, want nil", u, err)
		}
	}

	invalid := []string{
		"",
		"ftp://host/file",
		"file:///etc/passwd",
		"/relative/path",
		"http://",
		"http://host/a\x00b",
	}
	for _, u := range invalid {
		if err := ValidateURL(u); err == nil {
			t.Errorf("ValidateURL(%q) = nil, want error", u)
		}
	}
}

func TestPlaywrightBrowser_RejectsNonHTTPURL(t *testing.T) {
	s, _, _ := newTestSandbox(t)
	b := NewPlaywrightBrowser(s, t.TempDir())

	// Rejected before any process spawns, so no playwright binary is
	// needed here.
	if _, err := b.Screenshot(context.Background(), "file:///etc/passwd", "", false); err == nil {
		t.Error("non-http scheme should be rejected")
	}
}
