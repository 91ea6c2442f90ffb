// Package cachekit is an in-process caching engine built around three
// layers:
//
//   - cache.Cache: a generic, mutex-serialized key/value store with
//     pluggable eviction strategies (LRU, FIFO, LFU, TTL), entry-count
//     and byte bounds, per-entry TTLs and hit/miss/eviction counters.
//   - query.Cache: a layer on top of cache.Cache for expensive derived
//     results, adding tag-based bulk invalidation and
//     stale-while-revalidate background refresh.
//   - manager.Manager: a registry of named caches with a periodic
//     cleanup loop, aggregate statistics and cross-cache tag
//     invalidation.
//
// The memoize package wraps plain functions with call-level caching on
// top of the manager, and keygen builds stable hashed keys and
// invalidation tags from queries and model values.
//
// Basic usage:
//
//	c := cache.New[string]("sessions",
//		cache.WithStrategy(cache.LRU),
//		cache.WithMaxSize(10_000),
//		cache.WithTTL(5*time.Minute),
//	)
//	c.Set("user:42", "payload")
//	if v, ok := c.Get("user:42"); ok {
//		_ = v
//	}
//
// A cache never fails a read or write path: misses, expired entries and
// refresh errors degrade to a miss or a stale read, never to an error
// in the caller's primary operation.
package cachekit
