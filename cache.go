package fuse

import (
	"fmt"
	"os"
	"time"

	json "github.com/goccy/go-json"
)

// Cache is the storage contract behind [StaleCache]. Adapters wrap a real
// cache library; expiry of entries is the adapter's job, driven by the TTL
// handed to each Set.
type Cache[K comparable, V any] interface {
	// Get returns the entry for key and whether one was found.
	Get(key K) (V, bool)
	// Set stores value under key for at most ttl.
	Set(key K, value V, ttl time.Duration)
	// Delete drops the entry for key, if any.
	Delete(key K)
}

// CacheConfig describes one cache instance loaded from a config file.
type CacheConfig struct {
	// Options carries adapter-specific knobs such as
	// "reset_ttl_on_access"; adapters ignore keys they do not know.
	Options map[string]any
	// TTL applies to every entry written through the cache.
	TTL time.Duration
	// MaxSize caps the number of entries the adapter keeps.
	MaxSize int
}

type cacheFileSchema struct {
	Caches map[string]cacheEntrySchema `json:"caches"`
}

type cacheEntrySchema struct {
	Options map[string]any `json:"options,omitempty"`
	TTL     string         `json:"ttl"`
	MaxSize int            `json:"max_size"`
}

// LoadCacheConfig parses the JSON file at path and returns the settings of
// the cache registered under name.
func LoadCacheConfig(path, name string) (CacheConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("fuse: read cache config: %w", err)
	}

	var file cacheFileSchema

	if err = json.Unmarshal(data, &file); err != nil {
		return CacheConfig{}, fmt.Errorf("fuse: parse cache config: %w", err)
	}

	entry, ok := file.Caches[name]
	if !ok {
		return CacheConfig{}, fmt.Errorf(
			"fuse: cache %q not found in config",
			name,
		)
	}

	cfg := CacheConfig{
		Options: entry.Options,
		MaxSize: entry.MaxSize,
	}

	if entry.TTL == "" {
		return cfg, nil
	}

	ttl, err := time.ParseDuration(entry.TTL)
	if err != nil {
		return CacheConfig{}, fmt.Errorf("fuse: cache %q: ttl: %w", name, err)
	}

	cfg.TTL = ttl

	return cfg, nil
}
