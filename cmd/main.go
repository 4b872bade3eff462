package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/okian/rankbench/internal/adapters/repository"
	app "github.com/okian/rankbench/internal/app"
	"github.com/okian/rankbench/internal/config"
	"github.com/okian/rankbench/pkg/logger"
	"github.com/okian/rankbench/pkg/metrics"
)

// Timeouts for the steps that run after the benchmark, possibly on a
// cancelled context.
const (
	closeTimeout = 10 * time.Second
	pushTimeout  = 10 * time.Second
)

// openStore opens the configured store. Tests replace it to observe the
// store lifecycle.
var openStore = repository.Open //nolint:gochecknoglobals // test hook

func main() {
	os.Exit(run())
}

// run returns the process exit status. Deferred releases execute before the
// status reaches os.Exit.
func run() int {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logging: " + err.Error() + "\n")
		}
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}

	runID := uuid.NewString()
	log := logger.Get().With(logger.String("run_id", runID))

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	if cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.RunTimeout)
		defer cancel()
	}

	store, err := openStore(ctx, cfg.Store,
		repository.WithURI(cfg.URI),
		repository.WithDatabase(cfg.Database),
		repository.WithCollection(cfg.Collection),
		repository.WithLogger(log.Named("store")),
	)
	if err != nil {
		log.Error(ctx, "failed to open store", logger.String("store", cfg.Store), logger.Error(err))
		return 1
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error(closeCtx, "failed to close store", logger.Error(err))
		}
	}()

	log.Info(ctx, "starting rank benchmark",
		logger.String("store", cfg.Store),
		logger.String("collection", cfg.Collection),
		logger.Int("records", cfg.TotalRecords()),
		logger.Int("iterations", cfg.Iterations),
		logger.Any("tricky_covered_filter", cfg.TrickyCoveredFilter))

	runner := app.New(store, cfg, app.WithLogger(log))
	_, runErr := runner.Run(ctx)

	if cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
		defer cancel()
		if err := metrics.Push(pushCtx, cfg.PushgatewayURL, cfg.JobName, runID); err != nil {
			log.Warn(pushCtx, "failed to push metrics", logger.String("gateway", cfg.PushgatewayURL), logger.Error(err))
		}
	}

	if runErr != nil {
		log.Error(ctx, "benchmark run failed", logger.Error(runErr))
		return 1
	}
	log.Info(ctx, "benchmark run finished")
	return 0
}
