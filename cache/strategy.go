package cache

// Strategy selects the eviction order used when a cache exceeds its
// entry-count or byte bounds.
type Strategy string

const (
	// LRU evicts the least recently accessed entry first.
	LRU Strategy = "lru"

	// FIFO evicts the entry with the oldest creation time first.
	FIFO Strategy = "fifo"

	// LFU evicts the least frequently accessed entry first.
	LFU Strategy = "lfu"

	// TTL evicts the entry closest to expiry first. Entries without a
	// TTL sort last; ties fall back to LRU order.
	TTL Strategy = "ttl"
)

// Valid reports whether s is a recognized strategy. Unrecognized
// strategies behave as LRU during eviction.
func (s Strategy) Valid() bool {
	switch s {
	case LRU, FIFO, LFU, TTL:
		return true
	}
	return false
}

// victimLess orders two entries for eviction under the given strategy;
// the lesser entry is evicted first.
func victimLess[V any](s Strategy, a, b *Entry[V]) bool {
	switch s {
	case FIFO:
		return a.CreatedAt.Before(b.CreatedAt)
	case LFU:
		return a.AccessCount < b.AccessCount
	case TTL:
		switch {
		case a.ExpiresAt.IsZero() && b.ExpiresAt.IsZero():
			return a.LastAccessed.Before(b.LastAccessed)
		case a.ExpiresAt.IsZero():
			return false
		case b.ExpiresAt.IsZero():
			return true
		case !a.ExpiresAt.Equal(b.ExpiresAt):
			return a.ExpiresAt.Before(b.ExpiresAt)
		}
		return a.LastAccessed.Before(b.LastAccessed)
	default: // LRU and anything unrecognized
		return a.LastAccessed.Before(b.LastAccessed)
	}
}
