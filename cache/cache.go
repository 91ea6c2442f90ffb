package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Cache is a bounded key/value store with pluggable eviction. A single
// mutex serializes every operation that touches the entry map or the
// counters, so all operations on one Cache are linearized.
type Cache[V any] struct {
	name     string
	strategy Strategy
	maxSize  int
	maxBytes int64
	ttl      time.Duration

	clk     clock.Clock
	log     zerolog.Logger
	metrics Metrics

	mu         sync.Mutex
	entries    map[string]*Entry[V]
	totalBytes int64

	counters  *counters
	startedAt time.Time
}

// New constructs a Cache. The zero configuration is an unbounded LRU
// cache without TTL expiry.
func New[V any](name string, opts ...Option) *Cache[V] {
	cfg := defaultSettings()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Cache[V]{
		name:      name,
		strategy:  cfg.strategy,
		maxSize:   cfg.maxSize,
		maxBytes:  cfg.maxBytes,
		ttl:       cfg.ttl,
		clk:       cfg.clk,
		log:       cfg.log.With().Str("cache", name).Logger(),
		metrics:   cfg.metrics,
		entries:   make(map[string]*Entry[V]),
		counters:  newCounters(),
		startedAt: cfg.clk.Now(),
	}
}

// Name returns the cache identifier.
func (c *Cache[V]) Name() string { return c.name }

// Strategy returns the configured eviction strategy.
func (c *Cache[V]) Strategy() Strategy { return c.strategy }

// Get returns the live value for key. A miss or an expired entry
// returns the zero value and false; the expired entry is removed as a
// side effect.
func (c *Cache[V]) Get(key string) (V, bool) {
	var zero V

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.counters.misses.Add(1)
		c.metrics.Miss()
		return zero, false
	}

	now := c.clk.Now()
	if e.Expired(now) {
		c.removeLocked(key, e)
		c.counters.expirations.Add(1)
		c.metrics.Evict(ReasonExpired)
		c.publishSizeLocked()
		return zero, false
	}

	e.Touch(now)
	c.counters.hits.Add(1)
	c.metrics.Hit()
	return e.Value, true
}

// GetOrSet returns the cached value for key, computing and storing it
// via getter on a miss.
//
// The getter runs outside the cache lock, so two callers racing on the
// same missing key may both invoke it and both write (last write wins).
// This is an accepted race, not single-flight memoization; see
// query.Cache for the deduplicated refresh path.
func (c *Cache[V]) GetOrSet(ctx context.Context, key string, getter func(context.Context) (V, error), opts ...EntryOption) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	v, err := getter(ctx)
	if err != nil {
		var zero V
		return zero, err
	}

	c.Set(key, v, opts...)
	return v, nil
}

// Set stores value under key, replacing any existing entry wholesale.
// Count and byte bounds are enforced before insertion.
func (c *Cache[V]) Set(key string, value V, opts ...EntryOption) {
	var ecfg entrySettings
	for _, opt := range opts {
		opt(&ecfg)
	}

	ttl := c.ttl
	if ecfg.hasTTL {
		ttl = ecfg.ttl
	}

	size := estimateSize(value)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		c.evictLocked(0)
	}
	if c.maxBytes > 0 {
		var replaced int64
		if old, ok := c.entries[key]; ok {
			replaced = old.Size
		}
		if c.totalBytes-replaced+size > c.maxBytes {
			c.evictLocked(size)
		}
	}

	now := c.clk.Now()
	e := &Entry[V]{
		Value:        value,
		CreatedAt:    now,
		LastAccessed: now,
		Size:         size,
		Metadata:     ecfg.metadata,
	}
	if ttl > 0 {
		e.ExpiresAt = now.Add(ttl)
	}

	if old, ok := c.entries[key]; ok {
		c.totalBytes -= old.Size
	}
	c.entries[key] = e
	c.totalBytes += size
	c.publishSizeLocked()
}

// Delete removes key and reports whether it was present.
func (c *Cache[V]) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return false
	}
	c.removeLocked(key, e)
	c.publishSizeLocked()
	return true
}

// Has reports whether key holds a live entry. Unlike Get it does not
// touch access bookkeeping or the hit/miss counters.
func (c *Cache[V]) Has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	return ok && !e.Expired(c.clk.Now())
}

// Clear removes every entry and returns the prior count.
func (c *Cache[V]) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*Entry[V])
	c.totalBytes = 0
	c.publishSizeLocked()
	return n
}

// Cleanup removes every currently-expired entry and returns the count.
// It never evicts for size or count pressure.
func (c *Cache[V]) Cleanup() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clk.Now()
	removed := 0
	for key, e := range c.entries {
		if e.Expired(now) {
			c.removeLocked(key, e)
			c.counters.expirations.Add(1)
			c.metrics.Evict(ReasonExpired)
			removed++
		}
	}
	if removed > 0 {
		c.publishSizeLocked()
		c.log.Debug().Int("removed", removed).Msg("cleanup removed expired entries")
	}
	return removed
}

// Len returns the current entry count.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Bytes returns the total estimated byte footprint of live entries.
func (c *Cache[V]) Bytes() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalBytes
}

// Stats returns a point-in-time snapshot of the cache counters.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	size := len(c.entries)
	bytes := c.totalBytes
	c.mu.Unlock()

	hits, misses, evictions, expirations := c.counters.snapshot()

	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses)
	}

	return Stats{
		Name:        c.name,
		Strategy:    c.strategy,
		Size:        size,
		MaxSize:     c.maxSize,
		Bytes:       bytes,
		MaxBytes:    c.maxBytes,
		TTL:         c.ttl,
		Hits:        hits,
		Misses:      misses,
		HitRate:     hitRate,
		Evictions:   evictions,
		Expirations: expirations,
		Uptime:      c.clk.Now().Sub(c.startedAt),
	}
}

// evictLocked makes room under the count and byte bounds. Expired
// entries go first and count as expirations; live victims are then
// removed in strategy order until the cache is under max size, under
// max bytes and at least needed bytes have been freed. Callers must
// hold c.mu.
func (c *Cache[V]) evictLocked(needed int64) int {
	now := c.clk.Now()
	removed := 0

	for key, e := range c.entries {
		if e.Expired(now) {
			c.removeLocked(key, e)
			c.counters.expirations.Add(1)
			c.metrics.Evict(ReasonExpired)
			removed++
		}
	}

	if c.withinBoundsLocked(needed, 0) {
		if removed > 0 {
			c.publishSizeLocked()
		}
		return removed
	}

	type victim struct {
		key   string
		entry *Entry[V]
	}
	victims := make([]victim, 0, len(c.entries))
	for key, e := range c.entries {
		victims = append(victims, victim{key, e})
	}
	sort.Slice(victims, func(i, j int) bool {
		return victimLess(c.strategy, victims[i].entry, victims[j].entry)
	})

	var freed int64
	evicted := 0
	for _, v := range victims {
		if c.withinBoundsLocked(needed, freed) {
			break
		}
		c.removeLocked(v.key, v.entry)
		freed += v.entry.Size
		c.counters.evictions.Add(1)
		c.metrics.Evict(ReasonCapacity)
		evicted++
	}
	removed += evicted

	c.publishSizeLocked()
	if evicted > 0 {
		c.log.Debug().
			Str("strategy", string(c.strategy)).
			Int("evicted", evicted).
			Int64("freed_bytes", freed).
			Msg("evicted entries under pressure")
	}
	return removed
}

func (c *Cache[V]) withinBoundsLocked(needed, freed int64) bool {
	if c.maxSize > 0 && len(c.entries) >= c.maxSize {
		return false
	}
	if c.maxBytes > 0 && c.totalBytes > c.maxBytes {
		return false
	}
	if needed > 0 && freed < needed {
		return false
	}
	return true
}

func (c *Cache[V]) removeLocked(key string, e *Entry[V]) {
	delete(c.entries, key)
	c.totalBytes -= e.Size
}

func (c *Cache[V]) publishSizeLocked() {
	c.metrics.Size(len(c.entries), c.totalBytes)
}
