// Package telemetry provides structured logging and tracing for the
// server. Logs go to stderr and a JSONL file: stdout belongs to the
// MCP stdio transport and must stay clean.
package telemetry

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// NewLogger builds a JSON slog.Logger writing to stderr and
// <dataDir>/logs/server.jsonl. The returned closer flushes the log file
// and must be closed on shutdown. Key and signature material is
// redacted before it reaches any sink.
func NewLogger(dataDir, level string) (*slog.Logger, io.Closer, error) {
	logDir := filepath.Join(dataDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, nil, err
	}

	file, err := os.OpenFile(filepath.Join(logDir, "server.jsonl"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	handler := slog.NewJSONHandler(io.MultiWriter(os.Stderr, file), &slog.HandlerOptions{
		Level: ParseLevel(level),
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if shouldRedactKey(a.Key) {
				return slog.String(a.Key, "[REDACTED]")
			}
			return a
		},
	})
	return slog.New(handler), file, nil
}

// shouldRedactKey reports whether an attribute key names credential
// material.
func shouldRedactKey(key string) bool {
	lower := strings.ToLower(strings.TrimSpace(key))
	if lower == "" {
		return false
	}
	for _, token := range []string{"signature", "public_key", "publickey", "secret", "token", "password", "authorization"} {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
