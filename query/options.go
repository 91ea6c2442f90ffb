package query

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/cachekit/cachekit/cache"
)

// defaultStaleTTL is the outer entry lifetime applied when neither a
// fresh TTL nor an explicit stale TTL is configured.
const defaultStaleTTL = 5 * time.Minute

type settings struct {
	ttl         time.Duration
	staleTTL    time.Duration
	clk         clock.Clock
	log         zerolog.Logger
	inner       []cache.Option
	refreshRate int
	beta        float64
	coefficient float64
	betaEnabled bool
}

func defaultSettings() settings {
	return settings{
		clk: clock.New(),
		log: zerolog.Nop(),
	}
}

// Option configures a query Cache at construction time.
type Option func(*settings)

// WithTTL sets the fresh lifetime of entries. Reads past this boundary
// still succeed but trigger a background refresh when one is wired.
func WithTTL(d time.Duration) Option {
	return func(c *settings) { c.ttl = max(d, 0) }
}

// WithStaleTTL sets the outer lifetime after which entries physically
// expire. Defaults to 5x the fresh TTL, or 5 minutes without one.
func WithStaleTTL(d time.Duration) Option {
	return func(c *settings) { c.staleTTL = max(d, 0) }
}

// WithStrategy sets the inner cache's eviction strategy.
func WithStrategy(s cache.Strategy) Option {
	return func(c *settings) { c.inner = append(c.inner, cache.WithStrategy(s)) }
}

// WithMaxSize bounds the inner cache's entry count.
func WithMaxSize(n int) Option {
	return func(c *settings) { c.inner = append(c.inner, cache.WithMaxSize(n)) }
}

// WithMaxBytes bounds the inner cache's byte footprint.
func WithMaxBytes(n int64) Option {
	return func(c *settings) { c.inner = append(c.inner, cache.WithMaxBytes(n)) }
}

// WithMetrics sets the inner cache's observability sink.
func WithMetrics(m cache.Metrics) Option {
	return func(c *settings) { c.inner = append(c.inner, cache.WithMetrics(m)) }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *settings) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets the cache logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *settings) { c.log = log }
}

// WithRefreshRate paces background refreshes to at most n per second
// across the whole cache. Zero leaves refreshes unpaced.
func WithRefreshRate(n int) Option {
	return func(c *settings) { c.refreshRate = max(n, 0) }
}

// WithBetaRefresh enables stochastic early refresh: past
// coefficient*ttl an entry may refresh before its fresh boundary with
// probability 1-exp(-beta*elapsed/ttl), spreading refreshes out and
// avoiding synchronized expiry storms (RFC 5861-style behavior).
// Typical values: beta in (0,1], coefficient in [0,1).
func WithBetaRefresh(beta, coefficient float64) Option {
	return func(c *settings) {
		if beta <= 0 {
			return
		}
		c.beta = beta
		c.coefficient = coefficient
		c.betaEnabled = true
	}
}
