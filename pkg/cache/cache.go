// Package cache stores parsed ebuild metadata between runs.
//
// Extracting metadata means reading and tokenizing every ebuild reached by a
// resolution. The results are small JSON documents that only change when the
// ebuild file does, so they are cached under a key derived from the
// repository root and the ebuild's relative path.
//
// # Backends
//
//   - [NullCache] stores nothing (--no-cache).
//   - [FileCache] keeps one JSON file per entry under the user cache dir.
//   - [RedisCache] shares entries between processes, e.g. several API servers.
//
// Callers treat every cache error as a miss: a broken cache can slow a run
// down but never changes its result.
//
// # Keys
//
// Keys are produced by a [Keyer]. [ScopedKeyer] prefixes every key, which
// lets several repositories or tenants share one Redis database.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiration.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value for key. A missing or expired entry is reported
	// as hit == false with a nil error.
	Get(ctx context.Context, key string) (data []byte, hit bool, err error)
	// Set stores data under key. A ttl <= 0 means the entry never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases resources held by the cache.
	Close() error
}
