package seed

import (
	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/pkg/logger"
)

// Option applies a configuration option to the Seeder.
type Option func(*Seeder)

// WithBatchSize sets the number of records per insert call.
func WithBatchSize(size int) Option {
	return func(s *Seeder) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithBatchCount sets the number of insert calls.
func WithBatchCount(count int) Option {
	return func(s *Seeder) {
		if count > 0 {
			s.batchCount = count
		}
	}
}

// WithMaxScore sets the exclusive upper bound of generated scores.
func WithMaxScore(maxScore int) Option {
	return func(s *Seeder) {
		if maxScore > 0 {
			s.maxScore = maxScore
		}
	}
}

// WithIndexes replaces the indexes created after seeding.
func WithIndexes(specs []model.IndexSpec) Option {
	return func(s *Seeder) {
		s.indexes = specs
	}
}

// WithScoreSource replaces the score generator. intN must return a value in
// [0, n). Runs use the unseeded global source; tests inject a fixed one.
func WithScoreSource(intN func(n int) int) Option {
	return func(s *Seeder) {
		if intN != nil {
			s.intN = intN
		}
	}
}

// WithLogger sets a custom logger for the seeder.
func WithLogger(l logger.Logger) Option {
	return func(s *Seeder) {
		if l != nil {
			s.logger = l
		}
	}
}
