// Package store defines the opaque key-value persistence used for cached
// search results, with in-memory and redis backends. The sqlite backend
// lives in the database package.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get for missing or expired keys
var ErrNotFound = errors.New("key not found")

// Store is a key-value store with per-key expiry. A zero ttl keeps the
// value until it is overwritten or deleted.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}
