package query

import (
	"context"
	"time"
)

// RefreshFunc recomputes a cached result in the background once the
// entry passes its fresh boundary.
type RefreshFunc[V any] func(ctx context.Context) (V, error)

// envelope is what a query cache physically stores in its inner cache.
// The inner cache's TTL is the stale lifetime; expiresAt below is the
// earlier fresh boundary that triggers background refresh.
type envelope[V any] struct {
	result    V
	createdAt time.Time
	expiresAt time.Time // fresh boundary; zero means the entry never goes stale
	tags      []string
	refresh   RefreshFunc[V]
}

// SetOptions configures a single Set call.
type SetOptions[V any] struct {
	// Tags group the key for bulk invalidation.
	Tags []string

	// TTL overrides the cache-level fresh lifetime for this entry.
	// Zero keeps the cache default.
	TTL time.Duration

	// Refresh, if non-nil, is invoked in the background when the entry
	// is read past its fresh boundary.
	Refresh RefreshFunc[V]
}
