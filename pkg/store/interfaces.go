package store

import "context"

// StateStore handles persistent application state.
type StateStore interface {
	GetState(ctx context.Context, key string) (string, bool)
	SetState(ctx context.Context, key, val string) error
	DeleteState(ctx context.Context, key string) error
}

// StateLister enumerates stored keys.
type StateLister interface {
	ListState(ctx context.Context, prefix string) (map[string]string, error)
}

// Store is the full repository surface.
type Store interface {
	StateStore
	StateLister

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error
	// Close closes the store connection.
	Close() error
}
