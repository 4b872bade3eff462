package benchmark

import "errors"

// Sentinel kinds for benchmark errors.
var (
	ErrInvalidIterations = errors.New("iterations must be positive")
	ErrInvalidUserSpace  = errors.New("user id space must be positive")
)
