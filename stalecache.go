package fuse

import (
	"context"
	"time"
)

// StaleCache serves the last known good value for a key when the live call
// fails. Successful results are written to the backing [Cache] with the
// configured TTL; on error, a still-valid cached entry is returned instead
// of the failure.
//
// StaleCache sits outside [Policy] on purpose: it is keyed, while a Policy
// is not. To combine the two, call Policy.Do from inside the function given
// to StaleCache.Do.
type StaleCache[K comparable, V any] struct {
	backend     Cache[K, V]
	entryTTL    time.Duration
	onStale     func(K)
	onRefreshed func(K)
}

// StaleCacheOption configures a [StaleCache].
type StaleCacheOption[K comparable, V any] func(*StaleCache[K, V])

// OnStaleServed registers a callback fired with the key whenever a stale
// entry is served in place of a failed call.
func OnStaleServed[K comparable, V any](fn func(K)) StaleCacheOption[K, V] {
	return func(sc *StaleCache[K, V]) {
		sc.onStale = fn
	}
}

// OnCacheRefreshed registers a callback fired with the key whenever a
// successful call overwrites the cached entry.
func OnCacheRefreshed[K comparable, V any](fn func(K)) StaleCacheOption[K, V] {
	return func(sc *StaleCache[K, V]) {
		sc.onRefreshed = fn
	}
}

// NewStaleCache builds a StaleCache over the given backend. Entries written
// on success carry ttl; whether an expired entry is still readable is up to
// the backend.
func NewStaleCache[K comparable, V any](
	backend Cache[K, V],
	ttl time.Duration,
	opts ...StaleCacheOption[K, V],
) *StaleCache[K, V] {
	sc := &StaleCache[K, V]{
		backend:  backend,
		entryTTL: ttl,
	}

	for _, opt := range opts {
		opt(sc)
	}

	return sc
}

// Do invokes fn for key. A successful result refreshes the cache entry and
// is returned. On error, Do falls back to the cached entry for key; only
// when none exists does the caller see fn's error.
//
//nolint:ireturn,revive // V is a type parameter, and Do mirrors Policy.Do.
func (sc *StaleCache[K, V]) Do(
	ctx context.Context,
	key K,
	fn func(context.Context, K) (V, error),
) (V, error) {
	fresh, err := fn(ctx, key)
	if err != nil {
		return sc.serveStale(key, err)
	}

	sc.backend.Set(key, fresh, sc.entryTTL)

	if sc.onRefreshed != nil {
		sc.onRefreshed(key)
	}

	return fresh, nil
}

//nolint:ireturn // V is a type parameter.
func (sc *StaleCache[K, V]) serveStale(key K, callErr error) (V, error) {
	stale, ok := sc.backend.Get(key)
	if !ok {
		var zero V

		return zero, callErr //nolint:wrapcheck // fn's error, returned as-is
	}

	if sc.onStale != nil {
		sc.onStale(key)
	}

	return stale, nil
}
