// Package config defines the benchmark configuration and its loading hooks.
//
// Conventions:
// - Defaults live in New; Load layers an optional YAML file and env vars on top.
// - All loading functions accept context.Context as the first parameter.
// - Validation failures wrap ErrInvalidConfig, loading failures ErrLoadConfig.
package config

import (
	"time"

	"github.com/okian/rankbench/internal/adapters/repository"
	"github.com/okian/rankbench/pkg/logger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Store selects the backend: mongo or memory.
	Store string `koanf:"store"`

	// URI is the MongoDB connection string. Its path names the database.
	URI string `koanf:"uri"`

	// Database overrides the database named in URI when set.
	Database string `koanf:"database"`

	// Collection holds the leaderboard records.
	Collection string `koanf:"collection"`

	// BatchSize and BatchCount shape seeding: BatchCount inserts of BatchSize records.
	BatchSize  int `koanf:"batch_size"`
	BatchCount int `koanf:"batch_count"`

	// MaxScore is the exclusive upper bound of generated scores.
	MaxScore int `koanf:"max_score"`

	// Iterations is the number of timed calls per strategy.
	Iterations int `koanf:"iterations"`

	// TrickyCoveredFilter adds s >= 0 to the hinted query so that the
	// planner may pick a covered plan.
	TrickyCoveredFilter bool `koanf:"tricky_covered_filter"`

	// RunTimeout bounds the whole run; zero disables it.
	RunTimeout time.Duration `koanf:"run_timeout"`

	// PushgatewayURL enables pushing run metrics when set.
	PushgatewayURL string `koanf:"pushgateway_url"`

	// JobName is the Pushgateway job label.
	JobName string `koanf:"job_name"`
}

// New creates a Config holding the defaults.
func New() *Config {
	c := &Config{
		LogLevel:   "info",
		LogFormat:  logger.FormatText,
		Store:      repository.KindMongo,
		URI:        repository.DefaultURI,
		Collection: repository.DefaultCollection,
		BatchSize:  10_000,
		BatchCount: 10,
		MaxScore:   10_000,
		Iterations: 100,
		JobName:    "rankbench",
	}
	return c
}

// TotalRecords is the size of the seeded collection and of the user id space.
func (c *Config) TotalRecords() int {
	return c.BatchSize * c.BatchCount
}
