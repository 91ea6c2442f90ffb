package query

import "github.com/cachekit/cachekit/cache"

// Stats extends the inner cache snapshot with tag-index and refresh
// figures.
type Stats struct {
	Cache cache.Stats `json:"cache"`

	// Tags is the number of distinct tags with at least one key.
	Tags int `json:"tags"`

	// TaggedKeys is the total number of key-tag associations.
	TaggedKeys int `json:"tagged_keys"`

	// ActiveRefreshes counts background refreshes currently in flight.
	ActiveRefreshes int `json:"active_refreshes"`
}
