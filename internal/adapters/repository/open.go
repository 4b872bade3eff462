package repository

import (
	"context"
	"fmt"
)

// Store kinds selectable by configuration.
const (
	KindMongo  = "mongo"
	KindMemory = "memory"
)

// Open returns the store for kind. Options only apply to the MongoDB store.
func Open(ctx context.Context, kind string, opts ...Option) (Store, error) {
	switch kind {
	case KindMongo:
		s, err := NewMongoStore(ctx, opts...)
		if err != nil {
			return nil, err
		}
		return s, nil
	case KindMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStore, kind)
	}
}
