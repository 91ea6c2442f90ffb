// Package manager coordinates many named caches: lazy construction,
// a periodic cleanup loop, aggregate statistics and cross-cache tag
// invalidation.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/cachekit/cachekit/cache"
	"github.com/cachekit/cachekit/query"
)

// ErrCacheNotFound is returned by the Lookup methods when no cache is
// registered under the requested name.
var ErrCacheNotFound = errors.New("cache not found")

// DefaultCleanupInterval is the period of the background expiry sweep.
const DefaultCleanupInterval = time.Minute

// Manager is a registry of named caches and query caches. The two
// collections are separate namespaces; callers should not reuse a name
// across both. Manager-owned caches hold values as any so unrelated
// value types can live side by side.
type Manager struct {
	mu          sync.Mutex
	caches      map[string]*cache.Cache[any]
	queryCaches map[string]*query.Cache[any]

	interval time.Duration
	clk      clock.Clock
	log      zerolog.Logger

	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type settings struct {
	interval time.Duration
	clk      clock.Clock
	log      zerolog.Logger
}

// Option configures a Manager at construction time.
type Option func(*settings)

// WithCleanupInterval sets the period of the background expiry sweep.
func WithCleanupInterval(d time.Duration) Option {
	return func(c *settings) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithClock overrides the time source. Intended for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *settings) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *settings) { c.log = log }
}

// New constructs a stopped Manager; call Start to run the cleanup loop.
func New(opts ...Option) *Manager {
	cfg := settings{
		interval: DefaultCleanupInterval,
		clk:      clock.New(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Manager{
		caches:      make(map[string]*cache.Cache[any]),
		queryCaches: make(map[string]*query.Cache[any]),
		interval:    cfg.interval,
		clk:         cfg.clk,
		log:         cfg.log.With().Str("component", "cache_manager").Logger(),
	}
}

// Start launches the periodic cleanup loop. Calling Start on a running
// manager is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})
	m.running = true

	go m.cleanupLoop(ctx)
	m.log.Info().Dur("interval", m.interval).Msg("cache manager started")
}

// Stop cancels the cleanup loop and waits for it to exit. Idempotent.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.log.Info().Msg("cache manager stopped")
}

// Running reports whether the cleanup loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// GetCache returns the cache registered under name, constructing it
// with the given options on first use. Options are ignored for an
// already-registered name.
func (m *Manager) GetCache(name string, opts ...cache.Option) *cache.Cache[any] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.caches[name]; ok {
		return c
	}

	opts = append([]cache.Option{cache.WithClock(m.clk), cache.WithLogger(m.log)}, opts...)
	c := cache.New[any](name, opts...)
	m.caches[name] = c
	return c
}

// LookupCache returns the cache registered under name or
// ErrCacheNotFound.
func (m *Manager) LookupCache(name string) (*cache.Cache[any], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.caches[name]
	if !ok {
		return nil, fmt.Errorf("lookup cache %q: %w", name, ErrCacheNotFound)
	}
	return c, nil
}

// GetQueryCache returns the query cache registered under name,
// constructing it with the given options on first use.
func (m *Manager) GetQueryCache(name string, opts ...query.Option) *query.Cache[any] {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qc, ok := m.queryCaches[name]; ok {
		return qc
	}

	opts = append([]query.Option{query.WithClock(m.clk), query.WithLogger(m.log)}, opts...)
	qc := query.New[any](name, opts...)
	m.queryCaches[name] = qc
	return qc
}

// LookupQueryCache returns the query cache registered under name or
// ErrCacheNotFound.
func (m *Manager) LookupQueryCache(name string) (*query.Cache[any], error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qc, ok := m.queryCaches[name]
	if !ok {
		return nil, fmt.Errorf("lookup query cache %q: %w", name, ErrCacheNotFound)
	}
	return qc, nil
}

// InvalidateCache invalidates entries in the cache registered under
// name, checking plain caches first, then query caches. With keys it
// removes just those keys; without, it clears the whole cache. Returns
// the number of entries removed, or 0 when the name is unknown.
func (m *Manager) InvalidateCache(name string, keys ...string) int {
	m.mu.Lock()
	c, plain := m.caches[name]
	qc, queried := m.queryCaches[name]
	m.mu.Unlock()

	switch {
	case plain:
		if len(keys) == 0 {
			return c.Clear()
		}
		removed := 0
		for _, key := range keys {
			if c.Delete(key) {
				removed++
			}
		}
		return removed
	case queried:
		if len(keys) == 0 {
			return qc.InvalidateAll()
		}
		removed := 0
		for _, key := range keys {
			removed += qc.Invalidate(key)
		}
		return removed
	default:
		return 0
	}
}

// InvalidateByTags invalidates every key carrying any of the given tags
// across every registered query cache, returning the total number of
// entries removed.
func (m *Manager) InvalidateByTags(tags ...string) int {
	m.mu.Lock()
	queryCaches := make([]*query.Cache[any], 0, len(m.queryCaches))
	for _, qc := range m.queryCaches {
		queryCaches = append(queryCaches, qc)
	}
	m.mu.Unlock()

	total := 0
	for _, qc := range queryCaches {
		for _, tag := range tags {
			total += qc.InvalidateTag(tag)
		}
	}
	if total > 0 {
		m.log.Debug().Strs("tags", tags).Int("removed", total).Msg("invalidated by tags")
	}
	return total
}

// Stats aggregates every registered cache's snapshot plus running
// totals across both collections.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	caches := make(map[string]*cache.Cache[any], len(m.caches))
	for name, c := range m.caches {
		caches[name] = c
	}
	queryCaches := make(map[string]*query.Cache[any], len(m.queryCaches))
	for name, qc := range m.queryCaches {
		queryCaches[name] = qc
	}
	m.mu.Unlock()

	stats := Stats{
		Caches:      make(map[string]cache.Stats, len(caches)),
		QueryCaches: make(map[string]query.Stats, len(queryCaches)),
	}

	for name, c := range caches {
		s := c.Stats()
		stats.Caches[name] = s
		stats.TotalCaches++
		stats.TotalEntries += s.Size
		stats.TotalBytes += s.Bytes
		stats.TotalHits += s.Hits
		stats.TotalMisses += s.Misses
	}
	for name, qc := range queryCaches {
		s := qc.Stats()
		stats.QueryCaches[name] = s
		stats.TotalCaches++
		stats.TotalEntries += s.Cache.Size
		stats.TotalBytes += s.Cache.Bytes
		stats.TotalHits += s.Cache.Hits
		stats.TotalMisses += s.Cache.Misses
	}
	return stats
}

// cleanupLoop sweeps expired entries out of every registered cache once
// per interval until the context is cancelled.
func (m *Manager) cleanupLoop(ctx context.Context) {
	defer close(m.done)

	ticker := m.clk.Ticker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.log.Debug().Msg("cleanup loop cancelled")
			return
		case <-ticker.C:
			m.sweep(ctx)
		}
	}
}

// sweep runs Cleanup on every cache concurrently. A failure in one
// cache is logged and never stops the sweep for the others.
func (m *Manager) sweep(ctx context.Context) {
	m.mu.Lock()
	caches := make([]*cache.Cache[any], 0, len(m.caches))
	for _, c := range m.caches {
		caches = append(caches, c)
	}
	queryCaches := make([]*query.Cache[any], 0, len(m.queryCaches))
	for _, qc := range m.queryCaches {
		queryCaches = append(queryCaches, qc)
	}
	m.mu.Unlock()

	g, _ := errgroup.WithContext(ctx)
	for _, c := range caches {
		c := c
		g.Go(func() error {
			defer m.recoverSweep(c.Name())
			if n := c.Cleanup(); n > 0 {
				m.log.Debug().Str("cache", c.Name()).Int("removed", n).Msg("sweep removed expired entries")
			}
			return nil
		})
	}
	for _, qc := range queryCaches {
		qc := qc
		g.Go(func() error {
			defer m.recoverSweep(qc.Name())
			if n := qc.Cleanup(); n > 0 {
				m.log.Debug().Str("cache", qc.Name()).Int("removed", n).Msg("sweep removed expired entries")
			}
			return nil
		})
	}
	_ = g.Wait()
}

func (m *Manager) recoverSweep(name string) {
	if r := recover(); r != nil {
		m.log.Error().Str("cache", name).Any("panic", r).Msg("cleanup failed")
	}
}
