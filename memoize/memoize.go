// Package memoize wraps functions with call-level caching backed by a
// manager.Manager. Wrapping is the Go rendition of a caching decorator:
// the returned function has the same shape as the original and consults
// a named cache before invoking it.
package memoize

import (
	"context"
	"errors"
	"time"

	"github.com/cachekit/cachekit/cache"
	"github.com/cachekit/cachekit/manager"
	"github.com/cachekit/cachekit/query"
)

// ErrNilFunc is returned when a wrapper is constructed around nil.
// Misconfiguration fails loudly at construction time; everything at
// call time degrades to a cache miss instead of failing the caller.
var ErrNilFunc = errors.New("memoize: function must not be nil")

// Func is the shape of a memoizable function: a context plus loosely
// typed arguments, as produced by call sites that forward ...any.
type Func[T any] func(ctx context.Context, args ...any) (T, error)

type settings struct {
	mgr       *manager.Manager
	cacheName string
	keyPrefix string
	ttl       time.Duration
	strategy  cache.Strategy
	keyFunc   KeyFunc
	tags      []string
}

// Option configures Cached and QueryCached wrappers.
type Option func(*settings)

// WithManager routes the wrapper to a specific manager instead of the
// process-wide default.
func WithManager(m *manager.Manager) Option {
	return func(c *settings) { c.mgr = m }
}

// WithCacheName overrides the cache name, which defaults to the wrapped
// function's qualified runtime name.
func WithCacheName(name string) Option {
	return func(c *settings) { c.cacheName = name }
}

// WithKeyPrefix overrides the key prefix, which defaults to the wrapped
// function's base name.
func WithKeyPrefix(prefix string) Option {
	return func(c *settings) { c.keyPrefix = prefix }
}

// WithTTL sets the TTL for memoized results.
func WithTTL(d time.Duration) Option {
	return func(c *settings) { c.ttl = d }
}

// WithStrategy sets the eviction strategy of the backing cache.
// Only meaningful for Cached; QueryCached caches are strategy-agnostic.
func WithStrategy(s cache.Strategy) Option {
	return func(c *settings) { c.strategy = s }
}

// WithKeyFunc replaces the default hash-of-rendering key derivation.
func WithKeyFunc(fn KeyFunc) Option {
	return func(c *settings) {
		if fn != nil {
			c.keyFunc = fn
		}
	}
}

// WithTags attaches invalidation tags to results stored by QueryCached.
func WithTags(tags ...string) Option {
	return func(c *settings) { c.tags = tags }
}

// Cached wraps fn with memoization through a named cache.Cache obtained
// from the manager on every call (created on first use).
//
// The miss path inherits cache.GetOrSet semantics: fn runs outside the
// cache lock, and two concurrent callers racing on the same key may
// both invoke it. Use QueryCached when recomputation must be
// deduplicated.
func Cached[T any](fn Func[T], opts ...Option) (Func[T], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}

	cfg := resolve(fn, opts)

	var cacheOpts []cache.Option
	if cfg.strategy != "" {
		cacheOpts = append(cacheOpts, cache.WithStrategy(cfg.strategy))
	}
	if cfg.ttl > 0 {
		cacheOpts = append(cacheOpts, cache.WithTTL(cfg.ttl))
	}

	wrapped := func(ctx context.Context, args ...any) (T, error) {
		c := cfg.manager().GetCache(cfg.cacheName, cacheOpts...)

		v, err := c.GetOrSet(ctx, cfg.keyFunc(args), func(ctx context.Context) (any, error) {
			return fn(ctx, args...)
		})
		if err != nil {
			var zero T
			return zero, err
		}
		if t, ok := v.(T); ok {
			return t, nil
		}
		// Another caller stored an incompatible type under this cache
		// name; bypass the cache rather than fail the call.
		return fn(ctx, args...)
	}
	return wrapped, nil
}

// QueryCached wraps fn with memoization through a named query.Cache.
// The wrapped function doubles as the stored refresh func, so reads
// past the fresh TTL serve the stale result and recompute it in the
// background, deduplicated per key.
func QueryCached[T any](fn Func[T], opts ...Option) (Func[T], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}

	cfg := resolve(fn, opts)

	var queryOpts []query.Option
	if cfg.ttl > 0 {
		queryOpts = append(queryOpts, query.WithTTL(cfg.ttl))
	}

	wrapped := func(ctx context.Context, args ...any) (T, error) {
		qc := cfg.manager().GetQueryCache(cfg.cacheName, queryOpts...)

		v, err := qc.GetOrSet(ctx, cfg.keyFunc(args), func(ctx context.Context) (any, error) {
			return fn(ctx, args...)
		}, cfg.tags...)
		if err != nil {
			var zero T
			return zero, err
		}
		if t, ok := v.(T); ok {
			return t, nil
		}
		return fn(ctx, args...)
	}
	return wrapped, nil
}

func resolve(fn any, opts []Option) *settings {
	cfg := &settings{}
	for _, opt := range opts {
		opt(cfg)
	}

	qualified := funcName(fn)
	if cfg.cacheName == "" {
		cfg.cacheName = qualified
	}
	if cfg.keyPrefix == "" {
		cfg.keyPrefix = baseName(qualified)
	}
	if cfg.keyFunc == nil {
		cfg.keyFunc = DefaultKeyFunc(cfg.keyPrefix)
	}
	return cfg
}

// manager resolves the target manager at call time so wrappers built
// before SetDefault observe the final process-wide instance.
func (c *settings) manager() *manager.Manager {
	if c.mgr != nil {
		return c.mgr
	}
	return manager.Default()
}
