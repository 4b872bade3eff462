package app

import (
	"io"

	"github.com/okian/rankbench/pkg/logger"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithOutput sets the destination of report lines. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(r *Runner) {
		if w != nil {
			r.out = w
		}
	}
}

// WithLogger sets a custom logger for the runner and its components.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithScoreSource fixes the generator of seeded scores.
func WithScoreSource(intN func(n int) int) Option {
	return func(r *Runner) {
		r.scoreSource = intN
	}
}

// WithUserSource fixes the generator of sampled user ids.
func WithUserSource(intN func(n int) int) Option {
	return func(r *Runner) {
		r.userSource = intN
	}
}
