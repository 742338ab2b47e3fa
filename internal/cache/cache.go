package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache is a byte-oriented key/value cache. Entries are only ever replaced by
// a fresh read-through; stock mutations invalidate them.
type Cache interface {
	// Get returns the cached value. found is false on a miss.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key for ttl.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Invalidate deletes keys.
	Invalidate(ctx context.Context, keys ...string) error

	// InvalidatePrefix deletes every key starting with prefix.
	InvalidatePrefix(ctx context.Context, prefix string) error
}

const catalogPrefix = "kart:catalog:"

// ProductKey is the cache key of a single product.
func ProductKey(productID string) string {
	return fmt.Sprintf("%sproduct:%s", catalogPrefix, productID)
}

// ProductListPrefix prefixes every cached catalog listing page.
const ProductListPrefix = catalogPrefix + "products:"

// ProductListKey is the cache key of one catalog listing page.
func ProductListKey(limit, offset int) string {
	return fmt.Sprintf("%s%d:%d", ProductListPrefix, limit, offset)
}

// InvalidateStock drops every cached entry that shows stock of productIDs:
// the product entries themselves and all listing pages.
func InvalidateStock(ctx context.Context, c Cache, productIDs []string) error {
	if len(productIDs) > 0 {
		keys := make([]string, len(productIDs))
		for i, id := range productIDs {
			keys[i] = ProductKey(id)
		}
		if err := c.Invalidate(ctx, keys...); err != nil {
			return err
		}
	}
	return c.InvalidatePrefix(ctx, ProductListPrefix)
}

// NopCache never stores anything.
type NopCache struct{}

func (NopCache) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, nil
}

func (NopCache) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

func (NopCache) Invalidate(context.Context, ...string) error {
	return nil
}

func (NopCache) InvalidatePrefix(context.Context, string) error {
	return nil
}
