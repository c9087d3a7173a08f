// Package ristretto adapts the Ristretto cache library to the fuse.Cache
// interface for use with fuse.StaleCache.
package ristretto

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/fusekit/fuse"
)

const (
	// Ristretto recommends 10x max size for NumCounters.
	counterRatio = 10
	bufferItems  = 64
)

type (
	// Key is the subset of ristretto key types that are also comparable,
	// required by the fuse.Cache interface.
	Key interface {
		uint64 | string | byte | int | int32 | uint32 | int64
	}

	// adapter wraps a ristretto.Cache to implement fuse.Cache.
	adapter[K Key, V any] struct {
		cache *ristretto.Cache[K, V]
	}
)

// New creates a fuse.Cache backed by a Ristretto cache. MaxSize from
// [fuse.CacheConfig] configures the cache capacity. K must satisfy [Key].
//
// Writes are flushed through Ristretto's admission buffer before Set and
// Delete return, so a value stored for the stale-serve path is visible to
// an immediately following Get.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func New[K Key, V any](cfg fuse.CacheConfig) (fuse.Cache[K, V], error) {
	cache, err := ristretto.NewCache(&ristretto.Config[K, V]{
		NumCounters: int64(cfg.MaxSize) * counterRatio,
		MaxCost:     int64(cfg.MaxSize),
		BufferItems: bufferItems,
	})
	if err != nil {
		return nil, fmt.Errorf("fuse/ristretto: build cache: %w", err)
	}

	return &adapter[K, V]{cache: cache}, nil
}

// MustNew is like [New] but panics if the underlying Ristretto cache cannot
// be built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K Key, V any](cfg fuse.CacheConfig) fuse.Cache[K, V] {
	cache, err := New[K, V](cfg)
	if err != nil {
		panic(err.Error())
	}

	return cache
}

// Get retrieves a cached value by key.
//
//nolint:ireturn // generic type parameter V, not an interface
func (a *adapter[K, V]) Get(key K) (V, bool) {
	return a.cache.Get(key)
}

// Set stores a value with the given TTL and waits for the write buffer to
// drain so the entry is immediately visible.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.SetWithTTL(key, value, 1, ttl)
	a.cache.Wait()
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Del(key)
	a.cache.Wait()
}
