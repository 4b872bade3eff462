package repository

import "github.com/okian/rankbench/pkg/logger"

// Default connection settings, matching the collection the harness was
// first written against.
const (
	DefaultURI        = "mongodb://localhost:27017/test"
	DefaultDatabase   = "test"
	DefaultCollection = "zrank"
)

// mongoSettings collects MongoStore construction parameters.
type mongoSettings struct {
	uri        string
	database   string
	collection string
	logger     logger.Logger
}

// Option applies a configuration option to a MongoStore.
type Option func(*mongoSettings)

// WithURI sets the connection string. A database in its path selects the
// database unless WithDatabase overrides it.
func WithURI(uri string) Option {
	return func(s *mongoSettings) {
		if uri != "" {
			s.uri = uri
		}
	}
}

// WithDatabase overrides the database named in the connection string.
func WithDatabase(name string) Option {
	return func(s *mongoSettings) {
		if name != "" {
			s.database = name
		}
	}
}

// WithCollection sets the leaderboard collection name.
func WithCollection(name string) Option {
	return func(s *mongoSettings) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithLogger sets the logger used for connection lifecycle messages.
func WithLogger(l logger.Logger) Option {
	return func(s *mongoSettings) {
		if l != nil {
			s.logger = l
		}
	}
}
