// Package ratelimit provides sliding-window admission control keyed by
// identity id for authenticated callers and by client IP otherwise.
package ratelimit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// timeNow is swapped in tests to make windows deterministic.
var timeNow = time.Now

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration // zero when allowed
}

// window tracks request timestamps for one key within the sliding window.
type window struct {
	mu         sync.Mutex
	hits       []time.Time
	lastAccess time.Time
}

// take prunes expired hits and records a new one if under limit.
func (w *window) take(now time.Time, span time.Duration, limit int) Decision {
	w.mu.Lock()
	defer w.mu.Unlock()

	cutoff := now.Add(-span)
	kept := w.hits[:0]
	for _, t := range w.hits {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	w.hits = kept
	w.lastAccess = now

	if len(w.hits) >= limit {
		retry := w.hits[0].Add(span).Sub(now)
		if retry < 0 {
			retry = 0
		}
		return Decision{Allowed: false, Limit: limit, Remaining: 0, RetryAfter: retry}
	}
	w.hits = append(w.hits, now)
	return Decision{Allowed: true, Limit: limit, Remaining: limit - len(w.hits)}
}

func (w *window) last() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastAccess
}

// Limiter admits requests by counting them within a sliding window.
// Authenticated and anonymous traffic draw from independently configured
// quotas, so a flood of anonymous requests cannot starve signed callers.
type Limiter struct {
	mu      sync.RWMutex
	windows map[string]*window

	span      time.Duration
	authedMax int
	anonMax   int
	logger    *slog.Logger
}

// New creates a limiter. Zero or negative arguments fall back to
// 60s / 120 authenticated / 20 anonymous.
func New(span time.Duration, authedMax, anonMax int, logger *slog.Logger) *Limiter {
	if span <= 0 {
		span = time.Minute
	}
	if authedMax <= 0 {
		authedMax = 120
	}
	if anonMax <= 0 {
		anonMax = 20
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Limiter{
		windows:   make(map[string]*window),
		span:      span,
		authedMax: authedMax,
		anonMax:   anonMax,
		logger:    logger,
	}
}

// Allow records one request for key and decides admission. Authenticated
// callers get the higher quota.
func (l *Limiter) Allow(key string, authenticated bool) Decision {
	if key == "" {
		key = "unknown"
	}
	l.mu.RLock()
	limit := l.anonMax
	if authenticated {
		limit = l.authedMax
	}
	span := l.span
	l.mu.RUnlock()
	return l.getWindow(key).take(timeNow(), span, limit)
}

// SetQuotas replaces the per-window quotas. Used by the config watcher
// to apply edits without a restart; non-positive values are ignored.
func (l *Limiter) SetQuotas(authedMax, anonMax int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if authedMax > 0 {
		l.authedMax = authedMax
	}
	if anonMax > 0 {
		l.anonMax = anonMax
	}
}

func (l *Limiter) getWindow(key string) *window {
	l.mu.RLock()
	w, ok := l.windows[key]
	l.mu.RUnlock()
	if ok {
		return w
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if w, ok = l.windows[key]; ok {
		return w
	}
	w = &window{}
	l.windows[key] = w
	return w
}

// StartEviction launches a background goroutine that periodically removes
// windows with no recent requests, bounding memory under unique-IP churn.
func (l *Limiter) StartEviction(ctx context.Context, interval, maxAge time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				l.EvictStale(maxAge)
			}
		}
	}()
}

// EvictStale removes windows that have not been touched within maxAge.
func (l *Limiter) EvictStale(maxAge time.Duration) {
	cutoff := timeNow().Add(-maxAge)

	l.mu.Lock()
	defer l.mu.Unlock()

	evicted := 0
	for key, w := range l.windows {
		if w.last().Before(cutoff) {
			delete(l.windows, key)
			evicted++
		}
	}
	if evicted > 0 {
		l.logger.Debug("rate limiter eviction", "evicted", evicted, "remaining", len(l.windows))
	}
}

// TrackedKeys returns the number of live windows.
func (l *Limiter) TrackedKeys() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.windows)
}
