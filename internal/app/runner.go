// Package app sequences a benchmark run: seed, report the collection size,
// sample one rank per strategy, then time each strategy in turn.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/okian/rankbench/internal/adapters/repository"
	"github.com/okian/rankbench/internal/config"
	"github.com/okian/rankbench/internal/domain/benchmark"
	"github.com/okian/rankbench/internal/domain/model"
	"github.com/okian/rankbench/internal/domain/ranking"
	"github.com/okian/rankbench/internal/domain/seed"
	"github.com/okian/rankbench/pkg/logger"
	"github.com/okian/rankbench/pkg/metrics"
)

// lowestScore is the bound used for the covered variant of the hinted query;
// every seeded score satisfies it.
const lowestScore = 0

// Report collects what a run printed.
type Report struct {
	TotalDocs   int64
	SampleUser  string
	SampleRanks map[string]int64
	Results     []benchmark.Result
}

// Runner executes one benchmark run against an open store. The store is
// owned by the caller, which must close it on every path.
type Runner struct {
	store       repository.Store
	seeder      *seed.Seeder
	driver      *benchmark.Driver
	calculators []ranking.Calculator

	out    io.Writer
	logger logger.Logger

	// Sources of randomness; nil keeps the unseeded global source.
	scoreSource func(n int) int
	userSource  func(n int) int
}

// New wires a Runner from cfg. The calculators run in order: simple first,
// then tricky, never interleaved.
func New(store repository.Store, cfg *config.Config, opts ...Option) *Runner {
	r := &Runner{
		store: store,
		out:   os.Stdout,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get()
	}

	r.seeder = seed.New(store,
		seed.WithBatchSize(cfg.BatchSize),
		seed.WithBatchCount(cfg.BatchCount),
		seed.WithMaxScore(cfg.MaxScore),
		seed.WithScoreSource(r.scoreSource),
		seed.WithLogger(r.logger.Named("seed")),
	)
	r.driver = benchmark.New(cfg.TotalRecords(),
		benchmark.WithIterations(cfg.Iterations),
		benchmark.WithUserSource(r.userSource),
		benchmark.WithLogger(r.logger.Named("benchmark")),
	)

	trickyOpts := []ranking.TrickyOption{ranking.WithTrickyLogger(r.logger.Named("tricky"))}
	if cfg.TrickyCoveredFilter {
		trickyOpts = append(trickyOpts, ranking.WithScoreLowerBound(lowestScore))
	}
	r.calculators = []ranking.Calculator{
		ranking.NewSimple(store),
		ranking.NewTricky(store, trickyOpts...),
	}
	return r
}

// Run performs the run. Every step waits for the previous one; the first
// failure is returned and the remaining steps are skipped.
func (r *Runner) Run(ctx context.Context) (Report, error) {
	report := Report{SampleRanks: make(map[string]int64, len(r.calculators))}

	if err := r.seeder.Prepare(ctx); err != nil {
		return report, err
	}

	total, err := r.store.CountDocuments(ctx, model.Filter{})
	if err != nil {
		return report, fmt.Errorf("count documents: %w", err)
	}
	report.TotalDocs = total
	metrics.UpdateCollectionDocuments(total)
	r.printf("total docs: %d\n", total)

	// One user for every strategy so the sample lines are comparable.
	report.SampleUser = r.driver.RandomUser()
	for _, calc := range r.calculators {
		rank, err := calc.Rank(ctx, report.SampleUser)
		if err != nil {
			return report, fmt.Errorf("sample rank: %w", err)
		}
		report.SampleRanks[calc.Name()] = rank
		r.printf("zrank %s: %s = %d\n", calc.Name(), report.SampleUser, rank)
	}

	for _, calc := range r.calculators {
		res, err := r.driver.Run(ctx, calc)
		if err != nil {
			return report, err
		}
		report.Results = append(report.Results, res)
		r.printf("zrank %s: %.3f ms per run\n", calc.Name(), res.MeanMillis())
	}
	return report, nil
}

// printf writes a report line. Write failures are logged, not returned.
func (r *Runner) printf(format string, args ...any) {
	if _, err := fmt.Fprintf(r.out, format, args...); err != nil {
		r.logger.Warn(context.Background(), "failed to write report line", logger.Error(err))
	}
}
