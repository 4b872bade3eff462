// Package repository defines the leaderboard store interface and its
// MongoDB and in-memory implementations.
package repository

import (
	"context"

	"github.com/okian/rankbench/internal/domain/model"
)

// DropResult tells apart a dropped collection from one that did not exist.
type DropResult int

const (
	// Dropped means the collection existed and was removed.
	Dropped DropResult = iota
	// NotFound means there was nothing to drop.
	NotFound
)

// String implements fmt.Stringer.
func (r DropResult) String() string {
	switch r {
	case Dropped:
		return "dropped"
	case NotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Store provides access to the leaderboard collection.
//
// Implementations are used from a single goroutine; every call blocks until
// the underlying database answers.
type Store interface {
	// Drop removes the collection. A missing collection is reported as
	// NotFound with a nil error.
	Drop(ctx context.Context) (DropResult, error)

	// InsertMany bulk inserts records.
	// Returns ErrDuplicateKey when a unique index rejects a record.
	InsertMany(ctx context.Context, records []model.ScoreRecord) error

	// CreateIndexes creates the given indexes and returns their names.
	CreateIndexes(ctx context.Context, specs []model.IndexSpec) ([]string, error)

	// ListIndexes returns the secondary indexes of the collection.
	ListIndexes(ctx context.Context) ([]model.IndexSpec, error)

	// FindByUser returns the record of a user.
	// Returns ErrNotFound if the user is unknown.
	FindByUser(ctx context.Context, userID string) (model.ScoreRecord, error)

	// CountDocuments counts records matching the filter.
	CountDocuments(ctx context.Context, filter model.Filter) (int64, error)

	// Explain runs the query at executionStats verbosity and returns the report.
	Explain(ctx context.Context, q model.HintedQuery) (model.ExecutionStats, error)

	// Close releases the connection. It is safe to call once.
	Close(ctx context.Context) error
}
