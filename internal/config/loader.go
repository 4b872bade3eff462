package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/rankbench/internal/adapters/repository"
	"github.com/okian/rankbench/pkg/logger"
)

// Environment variable names.
const (
	envPrefix     = "RANKBENCH_"
	envConfigFile = "RANKBENCH_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New())
//  2. file (YAML) if RANKBENCH_CONFIG is set
//  3. env (prefix RANKBENCH_)
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	// Map env keys like RANKBENCH_BATCH_SIZE -> batch_size (flat keys).
	// Underscores are preserved to match the koanf tags on the struct.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values a run depends on.
func (c *Config) Validate() error {
	switch c.Store {
	case repository.KindMongo:
		if c.URI == "" {
			return fmt.Errorf("%w: uri must not be empty", ErrInvalidConfig)
		}
		if c.Collection == "" {
			return fmt.Errorf("%w: collection must not be empty", ErrInvalidConfig)
		}
	case repository.KindMemory:
	default:
		return fmt.Errorf("%w: unknown store %q", ErrInvalidConfig, c.Store)
	}

	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}

	if c.BatchSize <= 0 || c.BatchCount <= 0 {
		return fmt.Errorf("%w: batch_size and batch_count must be positive", ErrInvalidConfig)
	}
	if c.MaxScore <= 0 {
		return fmt.Errorf("%w: max_score must be positive", ErrInvalidConfig)
	}
	if c.Iterations <= 0 {
		return fmt.Errorf("%w: iterations must be positive", ErrInvalidConfig)
	}
	if c.RunTimeout < 0 {
		return fmt.Errorf("%w: run_timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}
