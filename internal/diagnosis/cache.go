package diagnosis

import (
	"context"
	"fmt"
	"os"
)

// CachedArtifacts is an ArtifactStore with a read-through, write-through
// cache in front of it. Cache failures are reported on stderr and fall back
// to the underlying store, except in Invalidate.
type CachedArtifacts struct {
	store ArtifactStore
	cache Cache
}

// NewCachedArtifacts wraps store with cache.
func NewCachedArtifacts(store ArtifactStore, cache Cache) *CachedArtifacts {
	return &CachedArtifacts{store: store, cache: cache}
}

// SaveArtifact persists data, then refreshes the cache entry.
func (c *CachedArtifacts) SaveArtifact(ctx context.Context, key string, data []byte) error {
	if err := c.store.SaveArtifact(ctx, key, data); err != nil {
		return err
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cache model artifact: %v\n", err)
	}
	return nil
}

// LoadArtifact serves from the cache when possible and populates it on a miss.
func (c *CachedArtifacts) LoadArtifact(ctx context.Context, key string) ([]byte, error) {
	data, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: artifact cache read failed: %v\n", err)
	} else if ok {
		return data, nil
	}

	data, err = c.store.LoadArtifact(ctx, key)
	if err != nil || data == nil {
		return data, err
	}
	if err := c.cache.Set(ctx, key, data); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to cache model artifact: %v\n", err)
	}
	return data, nil
}

// Invalidate removes the cache entry for key.
func (c *CachedArtifacts) Invalidate(ctx context.Context, key string) error {
	if err := c.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("invalidate cached artifact %q: %w", key, err)
	}
	return nil
}
