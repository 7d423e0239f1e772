package sandbox

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/store"
)

// Browser navigates to a URL and returns PNG bytes. Implementations
// report navigation failures with NavigationError so callers can tell
// "the page never loaded" apart from "the capture itself broke."
type Browser interface {
	Screenshot(ctx context.Context, url, viewport string, fullPage bool) ([]byte, error)
}

// NavigationError marks a failure to reach the page, as opposed to a
// failure taking or persisting the image.
type NavigationError struct {
	URL string
	Err error
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %v", e.URL, e.Err)
}

func (e *NavigationError) Unwrap() error { return e.Err }

// ValidateURL accepts absolute http(s) URLs. Query strings routinely
// carry "&" and bracket characters; the URL never passes through a
// shell, so it is exempt from the argument deny-set and only has to be
// a well-formed address.
func ValidateURL(raw string) error {
	if strings.ContainsRune(raw, 0) {
		return apperr.E(apperr.InvalidCommand, "url contains NUL byte")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return apperr.Ef(apperr.InvalidCommand, "invalid url %q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return apperr.Ef(apperr.InvalidCommand, "url must be absolute http or https: %q", raw)
	}
	return nil
}

// ScreenshotRequest carries one capture request.
type ScreenshotRequest struct {
	WorktreePath string
	URL          string
	Name         string
	Viewport     string // "1280x720" style, optional
	FullPage     bool
	Timeout      time.Duration // zero means 30s
}

// CaptureScreenshot navigates a headless browser to the URL, stores the
// PNG under the worktree's screenshots directory, and records a row.
func (s *Sandbox) CaptureScreenshot(ctx context.Context, browser Browser, req ScreenshotRequest) (*store.Screenshot, error) {
	if err := ValidatePath(req.WorktreePath); err != nil {
		return nil, err
	}
	if req.URL == "" || req.Name == "" {
		return nil, apperr.E(apperr.InvalidCommand, "url and screenshot name are required")
	}
	if err := ValidateURL(req.URL); err != nil {
		return nil, err
	}
	if err := s.requireActiveWorktree(req.WorktreePath); err != nil {
		return nil, err
	}
	wt, err := s.store.GetWorktreeByPath(req.WorktreePath)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load worktree", err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	png, err := browser.Screenshot(ctx, req.URL, req.Viewport, req.FullPage)
	if err != nil {
		var nav *NavigationError
		if errors.As(err, &nav) {
			return nil, apperr.Wrap(apperr.Internal, "page navigation failed", err)
		}
		return nil, apperr.Wrap(apperr.Internal, "screenshot capture failed", err)
	}

	dir := filepath.Join(req.WorktreePath, ".screenshots")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "create screenshots dir", err)
	}
	path := filepath.Join(dir, req.Name+".png")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "persist screenshot", err)
	}

	sc := store.Screenshot{
		WorktreeID: wt.ID,
		Name:       req.Name,
		Path:       path,
		URL:        req.URL,
		Viewport:   req.Viewport,
		FullPage:   req.FullPage,
	}
	id, err := s.store.CreateScreenshot(sc)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "record screenshot", err)
	}
	sc.ID = id

	s.logger.Info("screenshot captured", "name", req.Name, "url", req.URL, "path", path)
	return &sc, nil
}

// PlaywrightBrowser shells out to the playwright CLI for captures. It goes
// through the same validation and argument-array execution as every other
// sandboxed command.
type PlaywrightBrowser struct {
	sandbox *Sandbox
	workdir string
}

func NewPlaywrightBrowser(s *Sandbox, workdir string) *PlaywrightBrowser {
	return &PlaywrightBrowser{sandbox: s, workdir: workdir}
}

func (b *PlaywrightBrowser) Screenshot(ctx context.Context, url, viewport string, fullPage bool) ([]byte, error) {
	tmp, err := os.CreateTemp("", "capture-*.png")
	if err != nil {
		return nil, fmt.Errorf("allocate capture file: %w", err)
	}
	tmp.Close()
	defer os.Remove(tmp.Name())

	if err := ValidateURL(url); err != nil {
		return nil, err
	}
	args := []string{"screenshot", url, tmp.Name()}
	if viewport != "" {
		args = append(args, "--viewport-size", viewport)
	}
	if fullPage {
		args = append(args, "--full-page")
	}
	// The URL is checked as a URL above; every other argument still goes
	// through the metacharacter deny-set.
	rest := append([]string{args[0]}, args[2:]...)
	if err := b.sandbox.ValidateCommand("playwright", rest); err != nil {
		return nil, err
	}

	result, err := b.sandbox.run(ctx, b.workdir, "playwright", args, 30*time.Second)
	if err != nil {
		return nil, err
	}
	if !result.Success {
		return nil, &NavigationError{URL: url, Err: fmt.Errorf("exit %d: %s", result.ExitCode, result.Stderr)}
	}
	return os.ReadFile(tmp.Name())
}
