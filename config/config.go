// Package config loads the process configuration.
//
// Values are layered: defaults, then an optional YAML file, then environment
// variables. Environment names are the prefix followed by the env tags of
// the nested fields, for example KNOWLEDGENET_SERVER_ADDR:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("knowledgenet.yaml").
//	    WithEnvPrefix("KNOWLEDGENET").
//	    Load()
//
// Credentials live in a separate TOML file read by LoadKeys.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/hupe1980/knowledgenet/core"
	"github.com/hupe1980/knowledgenet/logging"
)

// Config is the complete process configuration.
type Config struct {
	Server  ServerConfig   `yaml:"server" env:"SERVER"`
	Agents  AgentsConfig   `yaml:"agents" env:"AGENTS"`
	Log     logging.Config `yaml:"log" env:"LOG"`
	Session SessionConfig  `yaml:"session" env:"SESSION"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string        `yaml:"addr" env:"ADDR"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"READ_TIMEOUT"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
	// RateLimit is the sustained number of requests per second. Zero disables limiting.
	RateLimit float64 `yaml:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int     `yaml:"rate_burst" env:"RATE_BURST"`
	Metrics   bool    `yaml:"metrics" env:"METRICS"`
	// MaxBodyBytes bounds request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes" env:"MAX_BODY_BYTES"`
}

// AgentsConfig locates the agent declarations.
type AgentsConfig struct {
	Dir          string `yaml:"dir" env:"DIR"`
	KeysFile     string `yaml:"keys_file" env:"KEYS_FILE"`
	MaxCallDepth int    `yaml:"max_call_depth" env:"MAX_CALL_DEPTH"`
}

// SessionConfig selects the transcript store.
type SessionConfig struct {
	// Backend is none, memory or sqlite.
	Backend string `yaml:"backend" env:"BACKEND"`
	DSN     string `yaml:"dsn" env:"DSN"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			RateBurst:       20,
			Metrics:         true,
			MaxBodyBytes:    16 << 20,
		},
		Agents: AgentsConfig{
			Dir:          "agents",
			MaxCallDepth: core.DefaultMaxCallDepth,
		},
		Log: logging.Config{
			Level:   "info",
			Format:  "json",
			Backend: "slog",
		},
		Session: SessionConfig{
			Backend: "none",
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Addr == "" {
		errs = append(errs, "server.addr is required")
	}
	if c.Server.RateLimit < 0 {
		errs = append(errs, "server.rate_limit must not be negative")
	}
	if c.Server.RateLimit > 0 && c.Server.RateBurst <= 0 {
		errs = append(errs, "server.rate_burst must be positive when rate limiting")
	}
	if c.Server.MaxBodyBytes <= 0 {
		errs = append(errs, "server.max_body_bytes must be positive")
	}
	if c.Agents.Dir == "" {
		errs = append(errs, "agents.dir is required")
	}
	if c.Agents.MaxCallDepth < 0 {
		errs = append(errs, "agents.max_call_depth must not be negative")
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, err.Error())
	}
	switch c.Log.Backend {
	case "", "slog", "zap":
	default:
		errs = append(errs, fmt.Sprintf("unknown log backend %q", c.Log.Backend))
	}
	switch c.Session.Backend {
	case "", "none", "memory":
	case "sqlite":
		if c.Session.DSN == "" {
			errs = append(errs, "session.dsn is required for the sqlite backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown session backend %q", c.Session.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors: %s", strings.Join(errs, "; "))
	}
	return nil
}
