package cache

import (
	"context"
	"time"

	"github.com/Abdallah-Tah/phpBuilder/pkg/observability"
)

// NullCache never stores anything. It backs --no-cache and tests; every
// lookup is reported to the cache hooks as a miss so disabled runs still
// show up in cache statistics.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	observability.Cache().OnCacheMiss(ctx, keyType(key))
	return nil, false, nil
}

func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)
