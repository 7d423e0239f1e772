// agentforge: execution backend for AI-driven development workflows.
//
// An MCP server that manages task phase pipelines, isolates changes in
// git worktrees, and runs build tooling inside a command sandbox.
//
// Usage:
//
//	agentforge serve        # Start MCP server (stdio transport)
//	agentforge serve-http   # Start MCP server (streamable HTTP transport)
//	agentforge update       # Update to the latest version
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/dconley/agentforge/internal/auth"
	"github.com/dconley/agentforge/internal/config"
	"github.com/dconley/agentforge/internal/gateway"
	"github.com/dconley/agentforge/internal/ratelimit"
	appserver "github.com/dconley/agentforge/internal/server"
	"github.com/dconley/agentforge/internal/telemetry"
	"github.com/dconley/agentforge/internal/updater"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(false); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "serve-http":
		if err := run(true); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "update":
		runUpdate()
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("agentforge v%s\n", appserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

// configPath honors AGENTFORGE_CONFIG before falling back to the
// conventional location.
func configPath() string {
	if p := os.Getenv("AGENTFORGE_CONFIG"); p != "" {
		return p
	}
	return config.DefaultPath()
}

func run(httpTransport bool) error {
	cfgPath := configPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	logger, logCloser, err := telemetry.NewLogger(cfg.DataDir, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logCloser.Close()

	// Graceful shutdown on interrupt.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.InitTracing(ctx, cfg.Otel.Enabled, cfg.Otel.ServiceName)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer tracing.Shutdown(context.Background())

	srv, cleanup, err := appserver.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	if !httpTransport {
		// Background version check — prints to stderr so it doesn't
		// interfere with MCP's stdio transport on stdout.
		go checkForUpdates()
		return mcpserver.ServeStdio(srv.MCP)
	}

	gate := auth.New(srv.Store, cfg.AuthMaxAge(), cfg.AuthClockSkew(), logger)
	limiter := ratelimit.New(cfg.RateLimitWindow(), cfg.RateLimit.AuthenticatedMax, cfg.RateLimit.AnonymousMax, logger)

	gw := gateway.New(srv, gate, limiter, cfg, logger)
	if err := gw.WatchConfig(ctx, cfgPath); err != nil {
		logger.Warn("config watcher disabled", "error", err)
	}
	return gw.Run(ctx)
}

// checkForUpdates runs a non-blocking version check and prints a notice
// to stderr if an update is available. Best-effort — network failures
// are silently ignored.
func checkForUpdates() {
	result := updater.CheckVersion(appserver.Version)
	if result.UpdateAvailable {
		fmt.Fprintf(os.Stderr,
			"\n  Update available: v%s -> v%s\n"+
				"  Run: agentforge update\n"+
				"  Release: %s\n\n",
			result.CurrentVersion, result.LatestVersion, result.ReleaseURL,
		)
	}
}

// runUpdate performs a self-update to the latest version.
func runUpdate() {
	fmt.Fprintf(os.Stderr, "Checking for updates...\n")

	result := updater.CheckVersion(appserver.Version)
	if !result.UpdateAvailable {
		fmt.Fprintf(os.Stderr, "Already at the latest version (v%s)\n", result.CurrentVersion)
		return
	}

	fmt.Fprintf(os.Stderr, "New version available: v%s -> v%s\n", result.CurrentVersion, result.LatestVersion)
	fmt.Fprintf(os.Stderr, "Downloading...\n")

	if err := updater.SelfUpdate(appserver.Version); err != nil {
		fmt.Fprintf(os.Stderr, "Update failed: %v\n", err)
		fmt.Fprintf(os.Stderr, "\n  You can download manually from:\n  %s\n", result.ReleaseURL)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "Updated to v%s. Restart agentforge to use the new version.\n", result.LatestVersion)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `agentforge v%s — execution backend for AI development workflows

Usage:
  agentforge serve        Start the MCP server (stdio transport)
  agentforge serve-http   Start the MCP server (streamable HTTP transport)
  agentforge update       Update to the latest version

Configuration:
  Reads %s
  (override with AGENTFORGE_CONFIG)

  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "agentforge": {
        "command": "agentforge",
        "args": ["serve"]
      }
    }
  }
`, appserver.Version, config.DefaultPath())
}
