package cache

import (
	"context"
	"fmt"
	"time"

	goCache "github.com/patrickmn/go-cache"

	"github.com/useautumn/autumn-sub008/internal/config"
)

// Predefined cache key prefixes
const (
	PrefixSnapshot = "snapshot:v1:"
)

// Cache defines the interface for caching operations
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) (interface{}, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the item never expires (but may be evicted)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// Flush removes all items from the cache
	Flush(ctx context.Context)
}

// InMemoryCache implements Cache using github.com/patrickmn/go-cache
type InMemoryCache struct {
	cache *goCache.Cache
}

// NewInMemoryCache creates a new InMemoryCache instance
func NewInMemoryCache(cfg *config.Configuration) *InMemoryCache {
	return &InMemoryCache{
		cache: goCache.New(cfg.Cache.TTL, cfg.Cache.CleanupInterval),
	}
}

func (c *InMemoryCache) Get(ctx context.Context, key string) (interface{}, bool) {
	return c.cache.Get(key)
}

func (c *InMemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) {
	c.cache.Set(key, value, expiration)
}

func (c *InMemoryCache) Delete(ctx context.Context, key string) {
	c.cache.Delete(key)
}

func (c *InMemoryCache) Flush(ctx context.Context) {
	c.cache.Flush()
}

// FormatKey joins key parts into a namespaced cache key
func FormatKey(prefix string, parts ...string) string {
	key := prefix
	for i, p := range parts {
		if i > 0 {
			key += ":"
		}
		key += p
	}
	return key
}

// TenantKey scopes a key by tenant to keep multi-tenant entries apart
func TenantKey(prefix, tenantID string, parts ...string) string {
	return FormatKey(prefix, append([]string{fmt.Sprintf("tenant:%s", tenantID)}, parts...)...)
}
