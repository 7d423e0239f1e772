// Package gateway exposes the MCP server over streamable HTTP.
//
// The request path is: auth gate, then rate limiter, then the MCP
// handler. Health probes bypass both. Sessions issued by the transport
// come from the session registry, so terminating a session server-side
// invalidates its id immediately.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dconley/agentforge/internal/auth"
	"github.com/dconley/agentforge/internal/config"
	"github.com/dconley/agentforge/internal/ratelimit"
	appserver "github.com/dconley/agentforge/internal/server"
)

const (
	evictionInterval = 5 * time.Minute
	evictionMaxAge   = 15 * time.Minute

	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 10 * time.Second
)

// Gateway runs the HTTP transport around an assembled server.
type Gateway struct {
	srv     *appserver.Server
	gate    *auth.Gate
	limiter *ratelimit.Limiter
	cfg     config.Config
	logger  *slog.Logger
}

// New creates a gateway. The gate and limiter are injected rather than
// built here so the caller can share them with the config watcher.
func New(srv *appserver.Server, gate *auth.Gate, limiter *ratelimit.Limiter, cfg config.Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{srv: srv, gate: gate, limiter: limiter, cfg: cfg, logger: logger}
}

// Handler builds the full HTTP handler: health endpoint plus the
// middleware-wrapped MCP transport.
func (g *Gateway) Handler() http.Handler {
	streamable := server.NewStreamableHTTPServer(
		g.srv.MCP,
		server.WithSessionIdManager(g.srv.Sessions),
	)

	var mcpHandler http.Handler = streamable
	if g.cfg.RateLimit.Enabled {
		mcpHandler = g.limiter.Middleware(mcpHandler)
	}
	if g.cfg.Auth.Enabled {
		mcpHandler = g.gate.Middleware(mcpHandler)
	} else {
		mcpHandler = g.gate.OptionalMiddleware(mcpHandler)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", g.handleHealth)
	mux.Handle("/", mcpHandler)
	return mux
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (g *Gateway) Run(ctx context.Context) error {
	if g.cfg.RateLimit.Enabled {
		g.limiter.StartEviction(ctx, evictionInterval, evictionMaxAge)
	}

	httpSrv := &http.Server{
		Addr:              g.cfg.HTTPAddr,
		Handler:           g.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		g.logger.Info("http transport listening", "addr", g.cfg.HTTPAddr,
			"auth", g.cfg.Auth.Enabled, "rate_limit", g.cfg.RateLimit.Enabled)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	g.logger.Info("http transport stopped", "sessions", g.srv.Sessions.Count())
	return nil
}

// WatchConfig applies config file edits to the running server. Only the
// sandbox allow-list and rate-limit quotas reload live; everything else
// needs a restart. A file that fails to parse leaves the running values
// untouched.
func (g *Gateway) WatchConfig(ctx context.Context, path string) error {
	w := config.NewWatcher(path, g.logger)
	if err := w.Start(ctx); err != nil {
		return err
	}
	go func() {
		for range w.Events() {
			cfg, err := config.Load(path)
			if err != nil {
				g.logger.Error("config reload failed", "path", path, "error", err)
				continue
			}
			g.srv.Sandbox.SetAllowedCommands(cfg.Sandbox.AllowedCommands)
			g.limiter.SetQuotas(cfg.RateLimit.AuthenticatedMax, cfg.RateLimit.AnonymousMax)
			g.logger.Info("config reloaded",
				"allowed_commands", len(cfg.Sandbox.AllowedCommands),
				"authenticated_max", cfg.RateLimit.AuthenticatedMax,
				"anonymous_max", cfg.RateLimit.AnonymousMax)
		}
	}()
	return nil
}

// handleHealth is the liveness probe. It never touches auth or quotas, so
// orchestrators can poll it freely.
func (g *Gateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
