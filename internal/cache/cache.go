// Package cache defines the narrow write-only cache contract consumed
// by handlers and startup callbacks. Implementations live in the
// memory and mongodb subpackages; the backend package selects one from
// configuration.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrSaveInCache indicates a cache write failed. Callers match it with
// errors.Is; the wrapped cause carries the backend detail.
var ErrSaveInCache = errors.New("error on save in cache")

// Store is the cache contract. A zero ttl means no expiry.
type Store interface {
	// Save writes value under key, expiring after ttl when ttl > 0
	Save(ctx context.Context, key string, value any, ttl time.Duration) error
	// Ping checks if the store is alive
	Ping(ctx context.Context) error
	// Close closes the store connection
	Close() error
}
