package cache

import "time"

// Entry is the value container held by a Cache. All timestamps are
// taken from the owning cache's clock. An entry is replaced wholesale
// on every Set; ExpiresAt never changes after creation.
type Entry[V any] struct {
	Value        V
	CreatedAt    time.Time
	ExpiresAt    time.Time // zero means "never expires by TTL"
	LastAccessed time.Time
	AccessCount  int64
	Size         int64          // estimated byte footprint, computed at insertion
	Metadata     map[string]any // caller-supplied, opaque to the cache
}

// Expired reports whether the entry's TTL has elapsed at the given
// instant. Equality with ExpiresAt is not expired.
func (e *Entry[V]) Expired(now time.Time) bool {
	if e.ExpiresAt.IsZero() {
		return false
	}
	return now.After(e.ExpiresAt)
}

// Touch records a successful read.
func (e *Entry[V]) Touch(now time.Time) {
	e.LastAccessed = now
	e.AccessCount++
}
