// Package backend selects a cache store implementation from
// configuration.
package backend

import (
	"context"
	"fmt"

	"github.com/gjovs/serverkit/internal/cache"
	"github.com/gjovs/serverkit/internal/cache/memory"
	"github.com/gjovs/serverkit/internal/cache/mongodb"
	"github.com/gjovs/serverkit/pkg/config"
)

// Type defines the type of cache backend
type Type string

const (
	// TypeMemory uses in-memory storage (for testing/development)
	TypeMemory Type = "memory"
	// TypeMongoDB uses MongoDB storage (for production)
	TypeMongoDB Type = "mongodb"
)

// New creates a cache store based on the configuration
func New(ctx context.Context, cfg *config.CacheConfig) (cache.Store, error) {
	switch Type(cfg.Type) {
	case TypeMemory, "":
		// Default to memory if not specified
		return memory.NewStore(), nil

	case TypeMongoDB:
		store, err := mongodb.NewStore(ctx, &cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("failed to create MongoDB cache: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}
