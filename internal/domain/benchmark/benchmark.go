// Package benchmark times repeated rank computations for random users.
package benchmark

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/internal/domain/ranking"
	"github.com/okian/rankbench/pkg/logger"
	"github.com/okian/rankbench/pkg/metrics"
)

// DefaultIterations is the number of timed calls per sweep.
const DefaultIterations = 100

// Driver runs benchmark sweeps against rank calculators.
type Driver struct {
	iterations int

	// idSpace is the number of seeded user ids; candidates are drawn from
	// the whole space without checking they exist.
	idSpace int
	intN    func(n int) int
	logger  logger.Logger
}

// Option applies a configuration option to the Driver.
type Option func(*Driver)

// WithIterations sets the number of timed calls per sweep.
func WithIterations(n int) Option {
	return func(d *Driver) {
		d.iterations = n
	}
}

// WithUserSource replaces the generator used to pick user ids. intN must
// return a value in [0, n).
func WithUserSource(intN func(n int) int) Option {
	return func(d *Driver) {
		if intN != nil {
			d.intN = intN
		}
	}
}

// WithLogger sets a custom logger for the driver.
func WithLogger(l logger.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// New constructs a Driver drawing user ids from [0, idSpace).
func New(idSpace int, opts ...Option) *Driver {
	d := &Driver{
		iterations: DefaultIterations,
		idSpace:    idSpace,
		intN:       rand.IntN,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RandomUser draws a candidate user id, e.g. "u4711". Draws are independent
// and may repeat.
func (d *Driver) RandomUser() string {
	return model.UserID(d.intN(d.idSpace))
}

// Run times Iterations calls of calc, each for a fresh random user. The first
// failing call ends the sweep; calls are never retried.
func (d *Driver) Run(ctx context.Context, calc ranking.Calculator) (Result, error) {
	if d.iterations <= 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidIterations, d.iterations)
	}
	if d.idSpace <= 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidUserSpace, d.idSpace)
	}

	log := d.log()
	name := calc.Name()
	log.Info(ctx, "running benchmark sweep", logger.String("strategy", name), logger.Int("iterations", d.iterations))

	col := newCollector(d.iterations)
	for i := 0; i < d.iterations; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("%s sweep stopped after %d calls: %w", name, i, err)
		}

		userID := d.RandomUser()
		start := time.Now()
		rank, err := calc.Rank(ctx, userID)
		elapsed := time.Since(start)
		if err != nil {
			return Result{}, fmt.Errorf("%s sweep call %d: %w", name, i, err)
		}

		col.record(elapsed, rank != ranking.NotRanked)
		metrics.RecordRankQueryLatency(name, float64(elapsed.Nanoseconds())/float64(time.Millisecond))
		metrics.RecordBenchmarkCall(name)
		log.Debug(ctx, "timed rank call",
			logger.String("strategy", name),
			logger.String("user", userID),
			logger.Int64("rank", rank),
			logger.Duration("elapsed", elapsed))
	}

	res := col.result(name)
	metrics.UpdateBenchmarkMeanLatency(name, res.MeanMillis())
	log.Info(ctx, "benchmark sweep finished",
		logger.String("strategy", name),
		logger.Float64("mean_ms", res.MeanMillis()),
		logger.Duration("p50", res.P50),
		logger.Duration("p90", res.P90),
		logger.Duration("p99", res.P99),
		logger.Duration("max", res.Max),
		logger.Int("not_found", res.NotFound))
	return res, nil
}

func (d *Driver) log() logger.Logger {
	if d.logger == nil {
		d.logger = logger.Get()
	}
	return d.logger
}
