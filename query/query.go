// Package query layers tag-based invalidation and
// stale-while-revalidate background refresh on top of cache.Cache. It
// is meant for expensive derived results where a slightly stale answer
// is acceptable while a refresh runs.
package query

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/cachekit/cachekit/cache"
	"github.com/cachekit/cachekit/internal/shared/random"
	"github.com/cachekit/cachekit/internal/shared/rate"
)

// Cache wraps a cache.Cache of envelopes. Entries physically expire at
// the stale TTL; reads past the earlier fresh boundary return the stale
// result immediately and kick off at most one background refresh per
// key.
//
// Lock order: the tag-index and refresh-registry mutexes are acquired
// outside the inner cache's own lock, never the other way around.
type Cache[V any] struct {
	inner    *cache.Cache[envelope[V]]
	ttl      time.Duration
	staleTTL time.Duration

	clk    clock.Clock
	log    zerolog.Logger
	cancel context.CancelFunc

	tagMu     sync.Mutex
	tagToKeys map[string]map[string]struct{}
	keyToTags map[string]map[string]struct{}

	refreshMu  sync.Mutex
	refreshing map[string]struct{}

	jitter      *rate.Jitter
	beta        float64
	coefficient float64
	betaEnabled bool
}

// New constructs a query cache. Without options entries stay fresh
// forever and physically expire after defaultStaleTTL.
func New[V any](name string, opts ...Option) *Cache[V] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	staleTTL := cfg.staleTTL
	if staleTTL <= 0 {
		if cfg.ttl > 0 {
			staleTTL = 5 * cfg.ttl
		} else {
			staleTTL = defaultStaleTTL
		}
	}

	ctx, cancel := context.WithCancel(context.Background())

	var jitter *rate.Jitter
	if cfg.refreshRate > 0 {
		jitter = rate.NewJitter(ctx, cfg.refreshRate)
	}

	innerOpts := append(cfg.inner,
		cache.WithTTL(staleTTL),
		cache.WithClock(cfg.clk),
		cache.WithLogger(cfg.log),
	)

	return &Cache[V]{
		inner:       cache.New[envelope[V]](name, innerOpts...),
		ttl:         cfg.ttl,
		staleTTL:    staleTTL,
		clk:         cfg.clk,
		log:         cfg.log.With().Str("query_cache", name).Logger(),
		cancel:      cancel,
		tagToKeys:   make(map[string]map[string]struct{}),
		keyToTags:   make(map[string]map[string]struct{}),
		refreshing:  make(map[string]struct{}),
		jitter:      jitter,
		beta:        cfg.beta,
		coefficient: cfg.coefficient,
		betaEnabled: cfg.betaEnabled,
	}
}

// Name returns the inner cache's identifier.
func (c *Cache[V]) Name() string { return c.inner.Name() }

// Get returns the cached result for key. A result past its fresh
// boundary is still returned immediately; if a refresh func was stored,
// a background refresh is started (at most one in flight per key). Past
// the stale TTL the entry has physically expired and Get misses.
func (c *Cache[V]) Get(ctx context.Context, key string) (V, bool) {
	env, ok := c.inner.Get(key)
	if !ok {
		var zero V
		return zero, false
	}

	if env.refresh != nil && c.wantRefresh(env) {
		c.startRefresh(ctx, key, env)
	}
	return env.result, true
}

// Set stores result under key, writing through to the inner cache with
// the stale TTL as the physical lifetime, and records any tags in the
// invalidation index. Tag associations are additive across re-sets.
func (c *Cache[V]) Set(key string, result V, o SetOptions[V]) {
	now := c.clk.Now()

	ttl := c.ttl
	if o.TTL > 0 {
		ttl = o.TTL
	}

	env := envelope[V]{
		result:    result,
		createdAt: now,
		tags:      o.Tags,
		refresh:   o.Refresh,
	}
	if ttl > 0 {
		env.expiresAt = now.Add(ttl)
	}

	c.inner.Set(key, env)

	if len(o.Tags) > 0 {
		c.tagMu.Lock()
		c.indexLocked(key, o.Tags)
		c.tagMu.Unlock()
	}
}

// GetOrSet returns the cached result for key, computing it via fetch on
// a miss. The fetch function is also stored as the entry's refresh
// func, so later stale reads re-invoke it in the background.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, fetch RefreshFunc[V], tags ...string) (V, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, nil
	}

	v, err := fetch(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v, SetOptions[V]{Tags: tags, Refresh: fetch})
	return v, nil
}

// Invalidate removes a single key from the cache and from every tag
// bucket it belongs to. Returns 1 if the key held a live entry, else 0.
func (c *Cache[V]) Invalidate(key string) int {
	deleted := c.inner.Delete(key)

	c.tagMu.Lock()
	c.dropKeyLocked(key)
	c.tagMu.Unlock()

	if deleted {
		return 1
	}
	return 0
}

// InvalidateTag removes every key currently associated with tag and
// returns the number of keys removed. An unknown tag returns 0.
func (c *Cache[V]) InvalidateTag(tag string) int {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()

	bucket, ok := c.tagToKeys[tag]
	if !ok {
		return 0
	}

	keys := make([]string, 0, len(bucket))
	for key := range bucket {
		keys = append(keys, key)
	}

	for _, key := range keys {
		c.inner.Delete(key)
		c.dropKeyLocked(key)
	}
	return len(keys)
}

// InvalidateAll clears the cache and both tag indices, returning the
// prior entry count.
func (c *Cache[V]) InvalidateAll() int {
	c.tagMu.Lock()
	defer c.tagMu.Unlock()

	n := c.inner.Clear()
	c.tagToKeys = make(map[string]map[string]struct{})
	c.keyToTags = make(map[string]map[string]struct{})
	return n
}

// Cleanup removes physically expired entries from the inner cache.
func (c *Cache[V]) Cleanup() int {
	return c.inner.Cleanup()
}

// Len returns the inner cache's entry count.
func (c *Cache[V]) Len() int {
	return c.inner.Len()
}

// Stats returns the inner cache stats plus tag-index and refresh
// figures.
func (c *Cache[V]) Stats() Stats {
	c.tagMu.Lock()
	tags := len(c.tagToKeys)
	tagged := 0
	for _, set := range c.keyToTags {
		tagged += len(set)
	}
	c.tagMu.Unlock()

	c.refreshMu.Lock()
	active := len(c.refreshing)
	c.refreshMu.Unlock()

	return Stats{
		Cache:           c.inner.Stats(),
		Tags:            tags,
		TaggedKeys:      tagged,
		ActiveRefreshes: active,
	}
}

// Close stops the refresh pacer. Background refreshes already in
// flight run to completion.
func (c *Cache[V]) Close() error {
	c.cancel()
	return nil
}

// wantRefresh decides whether a read should trigger a background
// refresh. Deterministic mode refreshes strictly past the fresh
// boundary; beta mode refreshes early with probability
// 1-exp(-beta*elapsed/window) once coefficient*window has elapsed.
func (c *Cache[V]) wantRefresh(env envelope[V]) bool {
	if env.expiresAt.IsZero() {
		return false
	}

	now := c.clk.Now()
	if !c.betaEnabled {
		return now.After(env.expiresAt)
	}

	window := env.expiresAt.Sub(env.createdAt)
	if window <= 0 {
		return now.After(env.expiresAt)
	}

	elapsed := now.Sub(env.createdAt)
	if elapsed < time.Duration(float64(window)*c.coefficient) {
		return false
	}

	p := 1 - math.Exp(-c.beta*(float64(elapsed)/float64(window)))
	return random.Float64() < p
}

// startRefresh spawns a background refresh for key unless one is
// already in flight. The caller's Get never waits on it.
func (c *Cache[V]) startRefresh(ctx context.Context, key string, env envelope[V]) {
	c.refreshMu.Lock()
	if _, inFlight := c.refreshing[key]; inFlight {
		c.refreshMu.Unlock()
		return
	}
	c.refreshing[key] = struct{}{}
	c.refreshMu.Unlock()

	go c.refreshEntry(context.WithoutCancel(ctx), key, env)
}

// refreshEntry re-invokes the stored refresh func and writes the fresh
// result back, unless the key was invalidated mid-flight. Failures are
// logged and the stale entry stays in place; the in-flight slot is
// always freed so the next stale read can retry.
func (c *Cache[V]) refreshEntry(ctx context.Context, key string, env envelope[V]) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error().Str("key", key).Any("panic", r).Msg("background refresh panicked")
		}
		c.refreshMu.Lock()
		delete(c.refreshing, key)
		c.refreshMu.Unlock()
	}()

	if c.jitter != nil {
		c.jitter.Take()
	}

	result, err := env.refresh(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("key", key).Msg("background refresh failed, keeping stale entry")
		return
	}

	// The entry may have been invalidated while the refresh ran.
	if !c.inner.Has(key) {
		return
	}

	c.Set(key, result, SetOptions[V]{Tags: env.tags, Refresh: env.refresh})
}

func (c *Cache[V]) indexLocked(key string, tags []string) {
	for _, tag := range tags {
		bucket, ok := c.tagToKeys[tag]
		if !ok {
			bucket = make(map[string]struct{})
			c.tagToKeys[tag] = bucket
		}
		bucket[key] = struct{}{}

		set, ok := c.keyToTags[key]
		if !ok {
			set = make(map[string]struct{})
			c.keyToTags[key] = set
		}
		set[tag] = struct{}{}
	}
}

// dropKeyLocked removes key from every bucket it appears in, keeping
// tagToKeys and keyToTags mutual inverses. Callers must hold tagMu.
func (c *Cache[V]) dropKeyLocked(key string) {
	for tag := range c.keyToTags[key] {
		bucket := c.tagToKeys[tag]
		delete(bucket, key)
		if len(bucket) == 0 {
			delete(c.tagToKeys, tag)
		}
	}
	delete(c.keyToTags, key)
}
