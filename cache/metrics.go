package cache

// EvictReason explains why an entry left the cache without an explicit
// Delete.
type EvictReason int

const (
	// ReasonCapacity — removed to satisfy the entry-count or byte bound.
	ReasonCapacity EvictReason = iota
	// ReasonExpired — removed because its TTL elapsed.
	ReasonExpired
)

// Metrics exposes cache-level observability hooks. A NoopMetrics
// implementation is used by default; metrics/prom provides a
// Prometheus-backed one.
type Metrics interface {
	Hit()
	Miss()
	Evict(reason EvictReason)
	Size(entries int, bytes int64)
}

// NoopMetrics is a Metrics implementation that does nothing.
type NoopMetrics struct{}

func (NoopMetrics) Hit()                      {}
func (NoopMetrics) Miss()                     {}
func (NoopMetrics) Evict(EvictReason)         {}
func (NoopMetrics) Size(entries int, b int64) {}

var _ Metrics = NoopMetrics{}
