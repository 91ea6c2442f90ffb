package cache

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

type settings struct {
	strategy Strategy
	maxSize  int   // 0 disables count-based eviction
	maxBytes int64 // 0 disables byte-based eviction
	ttl      time.Duration
	clk      clock.Clock
	log      zerolog.Logger
	metrics  Metrics
}

func defaultSettings() settings {
	return settings{
		strategy: LRU,
		clk:      clock.New(),
		log:      zerolog.Nop(),
		metrics:  NoopMetrics{},
	}
}

// Option configures a Cache at construction time.
type Option func(*settings)

// WithStrategy sets the eviction strategy. Defaults to LRU.
func WithStrategy(s Strategy) Option {
	return func(c *settings) { c.strategy = s }
}

// WithMaxSize bounds the entry count. Zero or negative disables
// count-based eviction.
func WithMaxSize(n int) Option {
	return func(c *settings) { c.maxSize = max(n, 0) }
}

// WithMaxBytes bounds the total estimated byte footprint. Zero or
// negative disables byte-based eviction.
func WithMaxBytes(n int64) Option {
	return func(c *settings) { c.maxBytes = max(n, 0) }
}

// WithTTL sets the default per-entry TTL applied when Set is called
// without an explicit one. Zero disables TTL expiry.
func WithTTL(d time.Duration) Option {
	return func(c *settings) { c.ttl = max(d, 0) }
}

// WithClock overrides the time source. Intended for tests.
func WithClock(clk clock.Clock) Option {
	return func(c *settings) {
		if clk != nil {
			c.clk = clk
		}
	}
}

// WithLogger sets the cache logger. Defaults to a no-op logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *settings) { c.log = log }
}

// WithMetrics sets the observability sink. Defaults to NoopMetrics.
func WithMetrics(m Metrics) Option {
	return func(c *settings) {
		if m != nil {
			c.metrics = m
		}
	}
}

type entrySettings struct {
	ttl      time.Duration
	hasTTL   bool
	metadata map[string]any
}

// EntryOption configures a single Set call.
type EntryOption func(*entrySettings)

// EntryTTL overrides the cache-level TTL for one entry. Zero means the
// entry never expires, regardless of the cache default.
func EntryTTL(d time.Duration) EntryOption {
	return func(e *entrySettings) {
		e.ttl = max(d, 0)
		e.hasTTL = true
	}
}

// EntryMetadata attaches caller-supplied annotations to the entry. The
// cache never inspects them.
func EntryMetadata(md map[string]any) EntryOption {
	return func(e *entrySettings) { e.metadata = md }
}
