package manager

import (
	"github.com/cachekit/cachekit/cache"
	"github.com/cachekit/cachekit/query"
)

// Stats aggregates per-cache snapshots with totals summed across both
// collections.
type Stats struct {
	TotalCaches  int   `json:"total_caches"`
	TotalEntries int   `json:"total_entries"`
	TotalBytes   int64 `json:"total_bytes"`
	TotalHits    int64 `json:"total_hits"`
	TotalMisses  int64 `json:"total_misses"`

	Caches      map[string]cache.Stats `json:"caches"`
	QueryCaches map[string]query.Stats `json:"query_caches"`
}
