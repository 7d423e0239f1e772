package ratelimit

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"

	"github.com/dconley/agentforge/internal/apperr"
	"github.com/dconley/agentforge/internal/auth"
)

// exemptPaths are never rate limited.
var exemptPaths = map[string]bool{
	"/healthz": true,
	"/health":  true,
	"/livez":   true,
	"/readyz":  true,
}

// Middleware enforces admission control. It must run after the auth
// middleware so identity, when present, is already on the context.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r == nil || r.URL == nil {
			next.ServeHTTP(w, r)
			return
		}
		if exemptPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		key, authenticated := requestKey(r)
		d := l.Allow(key, authenticated)

		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		if !d.Allowed {
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(retry))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprintf(w, `{"error":"rate limit exceeded","code":%q}`+"\n",
				apperr.RateLimited.Code())
			l.logger.Warn("request rate limited", "key", key, "limit", d.Limit)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// requestKey derives the limiter key: identity id when the request is
// authenticated, client IP otherwise, "unknown" as a last resort.
func requestKey(r *http.Request) (key string, authenticated bool) {
	if ident := auth.FromContext(r.Context()); ident != nil {
		return fmt.Sprintf("user:%d", ident.ID), true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		if r.RemoteAddr != "" {
			return "ip:" + r.RemoteAddr, false
		}
		return "unknown", false
	}
	return "ip:" + host, false
}
