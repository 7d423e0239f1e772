// Package auth implements the request-signature gate.
//
// Callers sign METHOD\nPATH\nTIMESTAMP\nBODY with an ed25519 key bound
// to their identity; the gate verifies the signature, enforces the
// replay window, and attaches the resolved identity to the request
// context. Every failure maps to a stable AUTH_* code — raw causes are
// never surfaced.
package auth

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/store"
)

// Header names carrying the credential material.
const (
	HeaderUserID    = "x-user-id"
	HeaderTimestamp = "x-signature-timestamp"
	HeaderSignature = "x-signature-ed25519"
)

// timeNow is swapped in tests to pin the replay window.
var timeNow = time.Now

// IdentityStore is the slice of persistence the gate needs.
type IdentityStore interface {
	GetIdentity(id int64) (*store.Identity, error)
	TouchIdentity(id int64) error
}

// Identity is the authenticated principal attached to request context.
type Identity struct {
	ID        int64
	PublicKey ed25519.PublicKey
}

// Gate verifies signed requests.
type Gate struct {
	store  IdentityStore
	maxAge time.Duration // how far in the past a timestamp may be, inclusive
	skew   time.Duration // how far in the future a timestamp may be
	logger *slog.Logger
}

// New creates a gate with the given replay window.
func New(s IdentityStore, maxAge, skew time.Duration, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{store: s, maxAge: maxAge, skew: skew, logger: logger}
}

// Headers carries the three signature headers. A nil slice means the
// header was absent; more than one value means the client sent an
// array, which is rejected.
type Headers struct {
	UserID    []string
	Timestamp []string
	Signature []string
}

// Authenticate verifies a request and returns the identity. Any panic
// below is converted to AUTH_ERROR so internals never leak.
func (g *Gate) Authenticate(method, path string, body []byte, h Headers) (ident *Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("auth panic", "panic", r)
			ident, err = nil, apperr.E(apperr.AuthError, "authentication failed")
		}
	}()

	userIDRaw, ok := scalar(h.UserID)
	if !ok {
		return nil, apperr.E(apperr.AuthMissingHeaders, "missing or repeated authentication headers")
	}
	tsRaw, ok := scalar(h.Timestamp)
	if !ok {
		return nil, apperr.E(apperr.AuthMissingHeaders, "missing or repeated authentication headers")
	}
	sigRaw, ok := scalar(h.Signature)
	if !ok {
		return nil, apperr.E(apperr.AuthMissingHeaders, "missing or repeated authentication headers")
	}

	userID, err := strconv.ParseInt(userIDRaw, 10, 64)
	if err != nil || userID <= 0 {
		return nil, apperr.E(apperr.AuthInvalidUserID, "user id must be a positive integer")
	}

	if err := g.ValidateTimestamp(tsRaw); err != nil {
		return nil, err
	}

	rec, err := g.store.GetIdentity(userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.E(apperr.AuthInvalidKey, "no active key for identity")
		}
		// Store failures are infra errors, not a verdict about the key.
		return nil, apperr.Wrap(apperr.AuthError, "identity lookup failed", err)
	}
	if rec.Revoked() {
		// Absent and revoked are deliberately indistinguishable.
		return nil, apperr.E(apperr.AuthInvalidKey, "no active key for identity")
	}

	if len(rec.PublicKey) != ed25519.PublicKeySize {
		return nil, apperr.Ef(apperr.AuthInvalidKey,
			"stored public key must be %d bytes, got %d", ed25519.PublicKeySize, len(rec.PublicKey))
	}

	sig, err := base64.StdEncoding.DecodeString(sigRaw)
	if err != nil {
		return nil, apperr.E(apperr.AuthInvalidSignature, "signature is not valid base64")
	}

	base := SignatureBase(method, path, tsRaw, body)
	if !ed25519.Verify(ed25519.PublicKey(rec.PublicKey), base, sig) {
		return nil, apperr.E(apperr.AuthInvalidSignature, "signature verification failed")
	}

	// Best-effort usage stamp: never on the request path, never fatal.
	go func(id int64) {
		if err := g.store.TouchIdentity(id); err != nil {
			g.logger.Warn("last_used_at update failed", "identity_id", id, "error", err)
		}
	}(userID)

	return &Identity{ID: userID, PublicKey: ed25519.PublicKey(rec.PublicKey)}, nil
}

// ValidateTimestamp enforces the replay window: timestamps up to maxAge
// in the past (inclusive) and up to the skew allowance in the future
// are accepted.
func (g *Gate) ValidateTimestamp(ts string) error {
	parsed, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return apperr.E(apperr.AuthInvalidTimestamp, "timestamp is not valid ISO-8601")
	}

	now := timeNow()
	age := now.Sub(parsed)
	if age > g.maxAge {
		return apperr.E(apperr.AuthInvalidTimestamp, "timestamp outside replay window")
	}
	if age < -g.skew {
		return apperr.E(apperr.AuthInvalidTimestamp, "timestamp too far in the future")
	}
	return nil
}

// SignatureBase builds the exact byte sequence that was signed:
// METHOD\nPATH\nTIMESTAMP\nBODY, method upper-cased, path as received
// (query string included), body canonicalized. An empty body
// contributes an empty string.
func SignatureBase(method, path, timestamp string, body []byte) []byte {
	var sb bytes.Buffer
	sb.WriteString(strings.ToUpper(method))
	sb.WriteByte('\n')
	sb.WriteString(path)
	sb.WriteByte('\n')
	sb.WriteString(timestamp)
	sb.WriteByte('\n')
	sb.Write(canonicalBody(body))
	return sb.Bytes()
}

// canonicalBody re-marshals a JSON body into its compact form so both
// sides sign the same serialization regardless of whitespace. Bodies
// that are not JSON are signed as-is.
func canonicalBody(body []byte) []byte {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil
	}
	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return trimmed
	}
	out, err := json.Marshal(parsed)
	if err != nil {
		return trimmed
	}
	return out
}

// scalar extracts a single-valued header. Absent or array-valued
// headers fail the check.
func scalar(values []string) (string, bool) {
	if len(values) != 1 || values[0] == "" {
		return "", false
	}
	return values[0], true
}
