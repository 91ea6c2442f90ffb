package cache

import "time"

// Stats is a point-in-time snapshot of a cache's configuration and
// counters, suitable for logging or metrics export.
type Stats struct {
	Name        string        `json:"name"`
	Strategy    Strategy      `json:"strategy"`
	Size        int           `json:"size"`
	MaxSize     int           `json:"max_size"`
	Bytes       int64         `json:"bytes"`
	MaxBytes    int64         `json:"max_bytes"`
	TTL         time.Duration `json:"ttl"`
	Hits        int64         `json:"hits"`
	Misses      int64         `json:"misses"`
	HitRate     float64       `json:"hit_rate"`
	Evictions   int64         `json:"evictions"`
	Expirations int64         `json:"expirations"`
	Uptime      time.Duration `json:"uptime"`
}
