package ranking

import (
	"context"
	"fmt"

	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/pkg/logger"
	"github.com/okian/rankbench/pkg/metrics"
)

// Tricky estimates a rank from the execution statistics of a hinted find.
//
// The find looks up one user through the {s: -1, u: 1} index. A scan of that
// index walks scores from high to low, so the number of keys it examines
// before reaching the user approximates the user's rank. The count comes from
// planner internals and is not a rank: it includes tied users sorted before
// this one, it depends on the plan the server picks, and a covered plan
// (see WithScoreLowerBound) reports far fewer keys for reasons the server
// does not document. Treat the result as an experimental heuristic.
type Tricky struct {
	explainer  Explainer
	hint       model.IndexSpec
	lowerBound *int
	logger     logger.Logger
}

// TrickyOption applies a configuration option to Tricky.
type TrickyOption func(*Tricky)

// WithScoreLowerBound adds s >= bound to the filter. With every projected
// field inside the hinted index the planner can answer from index keys
// alone, which changes the examined-key count.
func WithScoreLowerBound(bound int) TrickyOption {
	return func(c *Tricky) {
		c.lowerBound = &bound
	}
}

// WithHint forces a different index.
func WithHint(spec model.IndexSpec) TrickyOption {
	return func(c *Tricky) {
		if len(spec.Keys) > 0 {
			c.hint = spec
		}
	}
}

// WithTrickyLogger sets a custom logger for the strategy.
func WithTrickyLogger(l logger.Logger) TrickyOption {
	return func(c *Tricky) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewTricky constructs the examined-keys strategy.
func NewTricky(explainer Explainer, opts ...TrickyOption) *Tricky {
	c := &Tricky{
		explainer: explainer,
		hint:      model.RankIndex(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Calculator.
func (c *Tricky) Name() string { return StrategyTricky }

// Query returns the hinted find explained for userID: limit 1, score and
// user id projected, _id excluded.
func (c *Tricky) Query(userID string) model.HintedQuery {
	return model.HintedQuery{
		UserID:          userID,
		Hint:            c.hint,
		Projection:      []string{model.FieldScore, model.FieldUserID},
		Limit:           1,
		ScoreLowerBound: c.lowerBound,
	}
}

// Rank implements Calculator. It returns the examined-key count as reported;
// for an unknown user that is whatever the scan touched before giving up.
func (c *Tricky) Rank(ctx context.Context, userID string) (int64, error) {
	stats, err := c.explainer.Explain(ctx, c.Query(userID))
	if err != nil {
		metrics.RecordRankQueryError(StrategyTricky)
		return 0, fmt.Errorf("tricky rank of %s: %w", userID, err)
	}

	metrics.RecordKeysExamined(stats.TotalKeysExamined)
	if stats.NReturned == 0 {
		metrics.RecordRankNotFound(StrategyTricky)
	}
	c.log().Debug(ctx, "explained hinted find",
		logger.String("user", userID),
		logger.String("stage", stats.WinningStage),
		logger.Int64("keys_examined", stats.TotalKeysExamined),
		logger.Int64("docs_examined", stats.TotalDocsExamined),
		logger.Int64("returned", stats.NReturned),
		logger.Any("covered", stats.Covered()))
	return stats.TotalKeysExamined, nil
}

func (c *Tricky) log() logger.Logger {
	if c.logger == nil {
		c.logger = logger.Get()
	}
	return c.logger
}
