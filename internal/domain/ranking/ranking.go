// Package ranking defines the two strategies that compute the 0-based rank
// of a user's score: rank 0 is the highest score and equal scores share a
// rank.
package ranking

import (
	"context"

	"github.com/okian/rankbench/internal/domain/model"
)

// NotRanked is returned for users that are not in the collection.
const NotRanked int64 = -1

// Strategy names, used in report lines and metric labels.
const (
	StrategySimple = "simple"
	StrategyTricky = "tricky"
)

// Calculator computes the rank of a user. Implementations hold no state
// between calls.
type Calculator interface {
	// Name identifies the strategy.
	Name() string
	// Rank returns the rank of userID, NotRanked when the user is unknown.
	Rank(ctx context.Context, userID string) (int64, error)
}

// ScoreReader is the part of the store the count-based strategy needs.
type ScoreReader interface {
	FindByUser(ctx context.Context, userID string) (model.ScoreRecord, error)
	CountDocuments(ctx context.Context, filter model.Filter) (int64, error)
}

// Explainer is the part of the store the examined-keys strategy needs.
type Explainer interface {
	Explain(ctx context.Context, q model.HintedQuery) (model.ExecutionStats, error)
}
