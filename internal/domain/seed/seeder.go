// Package seed resets and populates the leaderboard collection.
package seed

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/rankbench/internal/adapters/repository"
	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/pkg/logger"
	"github.com/okian/rankbench/pkg/metrics"
)

// Default seeding shape.
const (
	DefaultBatchSize  = 10_000
	DefaultBatchCount = 10
	DefaultMaxScore   = 10_000
)

// Seeder drops, refills and indexes the leaderboard collection.
type Seeder struct {
	store      repository.Store
	batchSize  int
	batchCount int
	maxScore   int
	indexes    []model.IndexSpec

	// intN draws a score in [0, n)
	intN   func(n int) int
	logger logger.Logger
}

// New constructs a Seeder writing to store.
func New(store repository.Store, opts ...Option) *Seeder {
	s := &Seeder{
		store:      store,
		batchSize:  DefaultBatchSize,
		batchCount: DefaultBatchCount,
		maxScore:   DefaultMaxScore,
		indexes:    model.LeaderboardIndexes(),
		intN:       rand.IntN,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Total is the number of records a Prepare call leaves behind.
func (s *Seeder) Total() int {
	return s.batchSize * s.batchCount
}

// Prepare resets the collection to exactly Total fresh records and creates
// the leaderboard indexes. Steps run in order and the first failure aborts
// the run; nothing is rolled back.
func (s *Seeder) Prepare(ctx context.Context) error {
	log := s.log()
	start := time.Now()

	res, err := s.store.Drop(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrSeed, err)
	}
	if res == repository.NotFound {
		log.Debug(ctx, "collection did not exist; nothing to drop")
	}

	for batch := 0; batch < s.batchCount; batch++ {
		if err := s.store.InsertMany(ctx, s.Batch(batch)); err != nil {
			return fmt.Errorf("%w: batch %d: %w", ErrSeed, batch, err)
		}
		metrics.RecordSeedDocuments(s.batchSize)
		log.Debug(ctx, "inserted batch", logger.Int("batch", batch), logger.Int("size", s.batchSize))
	}

	names, err := s.store.CreateIndexes(ctx, s.indexes)
	if err != nil {
		return fmt.Errorf("%w: indexes: %w", ErrSeed, err)
	}

	elapsed := time.Since(start)
	metrics.UpdateSeedDuration(elapsed.Seconds())
	log.Info(ctx, "collection seeded",
		logger.Int("records", s.Total()),
		logger.Int("batches", s.batchCount),
		logger.Any("indexes", names),
		logger.Duration("elapsed", elapsed))
	return nil
}

// Batch builds the records of one batch. User ids continue where the
// previous batch stopped, so ids are unique and contiguous over a run.
func (s *Seeder) Batch(batch int) []model.ScoreRecord {
	records := make([]model.ScoreRecord, s.batchSize)
	for idx := range records {
		records[idx] = model.ScoreRecord{
			UserID: model.UserID(batch*s.batchSize + idx),
			Score:  s.intN(s.maxScore),
		}
	}
	return records
}

func (s *Seeder) log() logger.Logger {
	if s.logger == nil {
		s.logger = logger.Get()
	}
	return s.logger
}
