package store

import "context"

// Store is a string key-value store backing one persistence scope.
// Implementations must treat Remove of a missing key as success.
type Store interface {
	// Get returns the value for key; ok is false when the key is absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}
