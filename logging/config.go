package logging

import (
	"fmt"
	"io"
	"os"
)

// Config selects the logging backend and its output shape.
type Config struct {
	Level   string `yaml:"level" json:"level" env:"LEVEL"`
	Format  string `yaml:"format" json:"format" env:"FORMAT"`    // json or text
	Backend string `yaml:"backend" json:"backend" env:"BACKEND"` // slog or zap
}

// New builds a Logger from cfg writing to w (stderr when nil).
func New(cfg Config, w io.Writer) (Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case "", "slog":
		return NewSlogLogger(w, level, cfg.Format), nil
	case "zap":
		return NewZapLogger(w, level, cfg.Format), nil
	default:
		return nil, fmt.Errorf("unknown log backend %q", cfg.Backend)
	}
}
