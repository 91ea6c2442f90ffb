package prom

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/cachekit/cachekit/cache"
)

func TestAdapterCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "app", "cache", prometheus.Labels{"cache": "users"})

	a.Hit()
	a.Hit()
	a.Miss()
	a.Evict(cache.ReasonCapacity)
	a.Evict(cache.ReasonExpired)
	a.Evict(cache.ReasonExpired)
	a.Size(12, 4096)

	require.Equal(t, 2.0, testutil.ToFloat64(a.hits))
	require.Equal(t, 1.0, testutil.ToFloat64(a.misses))
	require.Equal(t, 1.0, testutil.ToFloat64(a.evicts.WithLabelValues("capacity")))
	require.Equal(t, 2.0, testutil.ToFloat64(a.evicts.WithLabelValues("expired")))
	require.Equal(t, 12.0, testutil.ToFloat64(a.sizeEnt))
	require.Equal(t, 4096.0, testutil.ToFloat64(a.sizeBytes))
}

func TestAdapterWiredToCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg, "app", "cache", nil)

	c := cache.New[int]("t", cache.WithMetrics(a), cache.WithMaxSize(1))
	c.Set("a", 1)
	c.Set("b", 2) // evicts "a"
	_, _ = c.Get("b")
	_, _ = c.Get("missing")

	require.Equal(t, 1.0, testutil.ToFloat64(a.hits))
	require.Equal(t, 1.0, testutil.ToFloat64(a.misses))
	require.Equal(t, 1.0, testutil.ToFloat64(a.evicts.WithLabelValues("capacity")))
	require.Equal(t, 1.0, testutil.ToFloat64(a.sizeEnt))
}

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg, "app", "cache", nil)

	families, err := reg.Gather()
	require.NoError(t, err)
	// Counters at zero are still gatherable; gauges appear once set.
	require.NotEmpty(t, families)
}
