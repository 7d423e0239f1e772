// Package config loads and validates the agentforge configuration.
//
// Configuration lives in a single YAML file (default
// ~/.agentforge/config.yaml). Missing file means defaults — the server
// must start with zero configuration for local stdio use.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// AuthConfig controls the request-signature gate.
type AuthConfig struct {
	// Enabled turns on signature verification for the HTTP transport.
	// Stdio transport never authenticates — the caller owns the process.
	Enabled bool `yaml:"enabled"`
	// MaxAgeSeconds is the replay window: signed timestamps older than
	// this are rejected. The boundary itself is accepted.
	MaxAgeSeconds int `yaml:"max_age_seconds"`
	// ClockSkewSeconds is how far in the future a timestamp may be.
	ClockSkewSeconds int `yaml:"clock_skew_seconds"`
}

// RateLimitConfig holds the sliding-window quotas. Authenticated and
// anonymous traffic are limited independently so anonymous floods
// cannot starve authenticated callers.
type RateLimitConfig struct {
	Enabled          bool `yaml:"enabled"`
	WindowSeconds    int  `yaml:"window_seconds"`
	AuthenticatedMax int  `yaml:"authenticated_max"`
	AnonymousMax     int  `yaml:"anonymous_max"`
}

// SandboxConfig controls subprocess execution.
type SandboxConfig struct {
	// AllowedCommands is the executable allow-list. Anything not listed
	// is rejected before a process is spawned.
	AllowedCommands []string `yaml:"allowed_commands"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	TestTimeoutSecs int      `yaml:"test_timeout_seconds"`
	MaxBufferBytes  int64    `yaml:"max_buffer_bytes"`
}

// GitConfig controls worktree operations.
type GitConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// OtelConfig controls tracing.
type OtelConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
}

// Config is the root configuration document.
type Config struct {
	DataDir string `yaml:"data_dir"`
	// DocsDir is walked at startup to seed the searchable document
	// corpus. Empty means no seeding.
	DocsDir   string          `yaml:"docs_dir"`
	LogLevel  string          `yaml:"log_level"`
	HTTPAddr  string          `yaml:"http_addr"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sandbox   SandboxConfig   `yaml:"sandbox"`
	Git       GitConfig       `yaml:"git"`
	Otel      OtelConfig      `yaml:"otel"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		DataDir:  filepath.Join(home, ".agentforge"),
		LogLevel: "info",
		HTTPAddr: ":8734",
		Auth: AuthConfig{
			Enabled:          true,
			MaxAgeSeconds:    60,
			ClockSkewSeconds: 5,
		},
		RateLimit: RateLimitConfig{
			Enabled:          true,
			WindowSeconds:    60,
			AuthenticatedMax: 120,
			AnonymousMax:     20,
		},
		Sandbox: SandboxConfig{
			AllowedCommands: []string{"npm", "npx", "node", "tsc", "eslint", "jest", "vitest", "playwright"},
			TimeoutSeconds:  120,
			TestTimeoutSecs: 240,
			MaxBufferBytes:  10 * 1024 * 1024,
		},
		Git:  GitConfig{TimeoutSeconds: 30},
		Otel: OtelConfig{Enabled: false, ServiceName: "agentforge"},
	}
}

// Load reads the config file at path, layering it over defaults.
// A missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".agentforge", "config.yaml")
}

// Validate rejects values that would disable safety limits.
func (c *Config) Validate() error {
	if c.Auth.MaxAgeSeconds <= 0 {
		return fmt.Errorf("auth.max_age_seconds must be positive, got %d", c.Auth.MaxAgeSeconds)
	}
	if c.Auth.ClockSkewSeconds < 0 {
		return fmt.Errorf("auth.clock_skew_seconds must not be negative, got %d", c.Auth.ClockSkewSeconds)
	}
	if c.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate_limit.window_seconds must be positive, got %d", c.RateLimit.WindowSeconds)
	}
	if c.RateLimit.AuthenticatedMax <= 0 || c.RateLimit.AnonymousMax <= 0 {
		return fmt.Errorf("rate_limit quotas must be positive")
	}
	if len(c.Sandbox.AllowedCommands) == 0 {
		return fmt.Errorf("sandbox.allowed_commands must not be empty")
	}
	if c.Sandbox.TimeoutSeconds <= 0 || c.Sandbox.TestTimeoutSecs <= 0 {
		return fmt.Errorf("sandbox timeouts must be positive")
	}
	if c.Sandbox.MaxBufferBytes <= 0 {
		return fmt.Errorf("sandbox.max_buffer_bytes must be positive")
	}
	if c.Git.TimeoutSeconds <= 0 {
		return fmt.Errorf("git.timeout_seconds must be positive")
	}
	return nil
}

// AuthMaxAge returns the replay window as a duration.
func (c *Config) AuthMaxAge() time.Duration {
	return time.Duration(c.Auth.MaxAgeSeconds) * time.Second
}

// AuthClockSkew returns the future-skew allowance as a duration.
func (c *Config) AuthClockSkew() time.Duration {
	return time.Duration(c.Auth.ClockSkewSeconds) * time.Second
}

// RateLimitWindow returns the sliding-window span as a duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimit.WindowSeconds) * time.Second
}
