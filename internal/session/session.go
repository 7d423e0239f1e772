// Package session maps opaque session ids to live protocol transports.
// The registry is purely in-memory: a process restart drops every session.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var timeNow = time.Now

// Transport is the per-session connection handle.
type Transport struct {
	ID         string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Registry owns the sessionId → transport map. Safe for concurrent use.
type Registry struct {
	mu         sync.Mutex
	transports map[string]*Transport
	terminated map[string]bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transports: make(map[string]*Transport),
		terminated: make(map[string]bool),
	}
}

// Create registers a fresh transport for id, replacing any previous one.
// Each call yields a structurally distinct transport instance.
func (r *Registry) Create(id string) *Transport {
	now := timeNow()
	t := &Transport{ID: id, CreatedAt: now, LastSeenAt: now}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports[id] = t
	delete(r.terminated, id)
	return t
}

// Get returns the transport for id, or nil when absent.
func (r *Registry) Get(id string) *Transport {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := r.transports[id]
	if t != nil {
		t.LastSeenAt = timeNow()
	}
	return t
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transports)
}

// Clear drops every session.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transports = make(map[string]*Transport)
	r.terminated = make(map[string]bool)
}

// ─── mcp-go SessionIdManager ────────────────────────────────────────────────
//
// The streamable HTTP server delegates session id handling here, so the ids
// it hands to clients are exactly the registry's keys.

const idPrefix = "mcp-session-"

// Generate mints a new session id and registers its transport.
func (r *Registry) Generate() string {
	id := idPrefix + uuid.NewString()
	r.Create(id)
	return id
}

// Validate reports whether the session id is live. A terminated id is
// distinguished from one that was never issued.
func (r *Registry) Validate(sessionID string) (isTerminated bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.terminated[sessionID] {
		return true, nil
	}
	if t, ok := r.transports[sessionID]; ok {
		t.LastSeenAt = timeNow()
		return false, nil
	}
	return false, fmt.Errorf("unknown session id %q", sessionID)
}

// Terminate ends a session. Unknown ids are a no-op; termination is always
// allowed.
func (r *Registry) Terminate(sessionID string) (isNotAllowed bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.transports[sessionID]; ok {
		delete(r.transports, sessionID)
		r.terminated[sessionID] = true
	}
	return false, nil
}
