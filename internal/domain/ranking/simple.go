package ranking

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/rankbench/internal/adapters/repository"
	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/pkg/metrics"
)

// Simple ranks a user by counting the records with a strictly greater
// score. It costs two round trips: a point lookup and a range count.
type Simple struct {
	reader ScoreReader
}

// NewSimple constructs the count-based strategy.
func NewSimple(reader ScoreReader) *Simple {
	return &Simple{reader: reader}
}

// Name implements Calculator.
func (c *Simple) Name() string { return StrategySimple }

// Rank implements Calculator.
func (c *Simple) Rank(ctx context.Context, userID string) (int64, error) {
	rec, err := c.reader.FindByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.RecordRankNotFound(StrategySimple)
		return NotRanked, nil
	}
	if err != nil {
		metrics.RecordRankQueryError(StrategySimple)
		return 0, fmt.Errorf("simple rank of %s: %w", userID, err)
	}

	above, err := c.reader.CountDocuments(ctx, model.ScoreAbove(rec.Score))
	if err != nil {
		metrics.RecordRankQueryError(StrategySimple)
		return 0, fmt.Errorf("simple rank of %s: %w", userID, err)
	}
	return above, nil
}
