package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/dconley/agentforge/internal/apperr"
)

// identityContextKey is the context key type for authenticated identities.
type identityContextKey struct{}

// FromContext retrieves the authenticated identity, or nil when the
// request was unauthenticated (optional gate, stdio transport).
func FromContext(ctx context.Context) *Identity {
	if ident, ok := ctx.Value(identityContextKey{}).(*Identity); ok {
		return ident
	}
	return nil
}

// WithIdentity returns a context carrying the identity. Exposed for the
// transport wiring and tests.
func WithIdentity(ctx context.Context, ident *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, ident)
}

// Middleware rejects requests that fail authentication with the
// structured error payload. The request body is restored for the
// downstream handler.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := g.authenticateRequest(r)
		if err != nil {
			writeAuthError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// OptionalMiddleware performs the same checks but proceeds
// unauthenticated on any failure — for endpoints that degrade
// gracefully instead of rejecting.
func (g *Gate) OptionalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ident, err := g.authenticateRequest(r)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
	})
}

// authenticateRequest reads and restores the body, then runs the gate.
func (g *Gate) authenticateRequest(r *http.Request) (*Identity, error) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(r.Body)
		if err != nil {
			return nil, apperr.E(apperr.AuthError, "authentication failed")
		}
		r.Body = io.NopCloser(bytes.NewReader(body))
	}

	path := r.URL.Path
	if r.URL.RawQuery != "" {
		path += "?" + r.URL.RawQuery
	}

	return g.Authenticate(r.Method, path, body, Headers{
		UserID:    r.Header.Values(HeaderUserID),
		Timestamp: r.Header.Values(HeaderTimestamp),
		Signature: r.Header.Values(HeaderSignature),
	})
}

// writeAuthError emits the structured error shape without internals.
func writeAuthError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(kind.HTTPStatus())
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error": apperr.UserMessage(err),
		"code":  kind.Code(),
	})
}
