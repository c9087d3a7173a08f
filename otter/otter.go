// Package otter adapts the Otter cache library to the fuse.Cache interface
// for use with fuse.StaleCache.
package otter

import (
	"fmt"
	"time"

	"github.com/maypok86/otter"

	"github.com/fusekit/fuse"
)

// adapter wraps an otter.CacheWithVariableTTL to implement fuse.Cache.
type adapter[K comparable, V any] struct {
	cache otter.CacheWithVariableTTL[K, V]
}

// New creates a fuse.Cache backed by an Otter cache with per-entry TTL
// support. MaxSize from [fuse.CacheConfig] configures the underlying cache
// capacity.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func New[K comparable, V any](cfg fuse.CacheConfig) (fuse.Cache[K, V], error) {
	cache, err := otter.MustBuilder[K, V](cfg.MaxSize).
		WithVariableTTL().
		Build()
	if err != nil {
		return nil, fmt.Errorf("fuse/otter: build cache: %w", err)
	}

	return &adapter[K, V]{cache: cache}, nil
}

// MustNew is like [New] but panics if the underlying Otter cache cannot be
// built.
//
//nolint:ireturn,varnamelen // generic type params K,V are idiomatic in Go
func MustNew[K comparable, V any](cfg fuse.CacheConfig) fuse.Cache[K, V] {
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

// Set stores a value with the given TTL.
func (a *adapter[K, V]) Set(key K, value V, ttl time.Duration) {
	a.cache.Set(key, value, ttl)
}

// Delete removes a cached entry by key.
func (a *adapter[K, V]) Delete(key K) {
	a.cache.Delete(key)
}
