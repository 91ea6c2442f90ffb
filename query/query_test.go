package query

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"
)

func TestGetMiss(t *testing.T) {
	qc := New[string]("t")
	defer qc.Close()

	_, ok := qc.Get(context.Background(), "absent")
	require.False(t, ok)
}

func TestSetGetFresh(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute))
	defer qc.Close()

	qc.Set("k", "v", SetOptions[string]{})

	v, ok := qc.Get(context.Background(), "k")
	require.True(t, ok)
	require.Equal(t, "v", v)
}

func TestPerEntryTTLOverride(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute), WithStaleTTL(time.Hour))
	defer qc.Close()

	var refreshed atomic.Int32
	qc.Set("k", "v", SetOptions[string]{
		TTL: time.Second,
		Refresh: func(ctx context.Context) (string, error) {
			refreshed.Add(1)
			return "v2", nil
		},
	})

	// Past the per-entry fresh boundary but well inside the default one.
	mock.Add(2 * time.Second)
	_, ok := qc.Get(context.Background(), "k")
	require.True(t, ok)

	require.Eventually(t, func() bool {
		return refreshed.Load() == 1
	}, time.Second, time.Millisecond)
}

func TestStaleWhileRevalidate(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute), WithStaleTTL(time.Hour))
	defer qc.Close()

	var fetches atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		if fetches.Add(1) == 1 {
			return "old", nil
		}
		return "new", nil
	}

	v, err := qc.GetOrSet(context.Background(), "k", fetch)
	require.NoError(t, err)
	require.Equal(t, "old", v)

	// Stale but not physically expired: served immediately, refresh in
	// the background.
	mock.Add(2 * time.Minute)
	v, ok := qc.Get(context.Background(), "k")
	require.True(t, ok)
	require.Equal(t, "old", v)

	require.Eventually(t, func() bool {
		v, ok := qc.Get(context.Background(), "k")
		return ok && v == "new"
	}, time.Second, time.Millisecond)
	require.Equal(t, int32(2), fetches.Load())
}

func TestPhysicalExpiry(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute), WithStaleTTL(10*time.Minute))
	defer qc.Close()

	qc.Set("k", "v", SetOptions[string]{})

	mock.Add(11 * time.Minute)
	_, ok := qc.Get(context.Background(), "k")
	require.False(t, ok)
}

func TestRefreshSingleFlight(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute), WithStaleTTL(time.Hour))
	defer qc.Close()

	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) (string, error) {
		if calls.Add(1) > 1 {
			<-release
		}
		return "v", nil
	}

	_, err := qc.GetOrSet(context.Background(), "k", fetch)
	require.NoError(t, err)

	mock.Add(2 * time.Minute)
	for i := 0; i < 20; i++ {
		_, ok := qc.Get(context.Background(), "k")
		require.True(t, ok)
	}

	// Exactly one background refresh was admitted for the key.
	require.Eventually(t, func() bool {
		return calls.Load() == 2
	}, time.Second, time.Millisecond)
	close(release)

	require.Eventually(t, func() bool {
		return qc.Stats().ActiveRefreshes == 0
	}, time.Second, time.Millisecond)
	require.Equal(t, int32(2), calls.Load())
}

func TestRefreshFailureKeepsStale(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute), WithStaleTTL(time.Hour))
	defer qc.Close()

	var calls atomic.Int32
	fetch := func(ctx context.Context) (string, error) {
		if calls.Add(1) > 1 {
			return "", errors.New("backend down")
		}
		return "old", nil
	}

	_, err := qc.GetOrSet(context.Background(), "k", fetch)
	require.NoError(t, err)

	mock.Add(2 * time.Minute)
	_, _ = qc.Get(context.Background(), "k")

	require.Eventually(t, func() bool {
		return calls.Load() == 2 && qc.Stats().ActiveRefreshes == 0
	}, time.Second, time.Millisecond)

	// The stale value survived the failed refresh and the slot was
	// freed, so the next stale read retries.
	v, ok := qc.Get(context.Background(), "k")
	require.True(t, ok)
	require.Equal(t, "old", v)
	require.Eventually(t, func() bool {
		return calls.Load() == 3
	}, time.Second, time.Millisecond)
}

func TestInvalidateKey(t *testing.T) {
	qc := New[string]("t")
	defer qc.Close()

	qc.Set("k", "v", SetOptions[string]{Tags: []string{"users"}})

	require.Equal(t, 1, qc.Invalidate("k"))
	require.Equal(t, 0, qc.Invalidate("k"))

	_, ok := qc.Get(context.Background(), "k")
	require.False(t, ok)

	s := qc.Stats()
	require.Zero(t, s.Tags)
	require.Zero(t, s.TaggedKeys)
}

func TestInvalidateTag(t *testing.T) {
	qc := New[int]("t")
	defer qc.Close()

	qc.Set("k1", 1, SetOptions[int]{Tags: []string{"a", "b"}})
	qc.Set("k2", 2, SetOptions[int]{Tags: []string{"b"}})
	qc.Set("k3", 3, SetOptions[int]{Tags: []string{"c"}})

	require.Equal(t, 2, qc.InvalidateTag("b"))
	require.Equal(t, 0, qc.InvalidateTag("b"))
	require.Equal(t, 0, qc.InvalidateTag("unknown"))

	ctx := context.Background()
	_, ok := qc.Get(ctx, "k1")
	require.False(t, ok)
	_, ok = qc.Get(ctx, "k2")
	require.False(t, ok)
	_, ok = qc.Get(ctx, "k3")
	require.True(t, ok)

	// Removing k1 via tag b also scrubbed it from tag a's bucket.
	require.Equal(t, 0, qc.InvalidateTag("a"))

	s := qc.Stats()
	require.Equal(t, 1, s.Tags)
	require.Equal(t, 1, s.TaggedKeys)
}

func TestInvalidateAll(t *testing.T) {
	qc := New[int]("t")
	defer qc.Close()

	qc.Set("k1", 1, SetOptions[int]{Tags: []string{"a"}})
	qc.Set("k2", 2, SetOptions[int]{})

	require.Equal(t, 2, qc.InvalidateAll())
	require.Equal(t, 0, qc.InvalidateAll())
	require.Zero(t, qc.Len())
	require.Zero(t, qc.Stats().Tags)
}

func TestTagsAdditiveAcrossResets(t *testing.T) {
	qc := New[int]("t")
	defer qc.Close()

	qc.Set("k", 1, SetOptions[int]{Tags: []string{"a"}})
	qc.Set("k", 2, SetOptions[int]{Tags: []string{"b"}})

	require.Equal(t, 1, qc.InvalidateTag("a"))
	_, ok := qc.Get(context.Background(), "k")
	require.False(t, ok)
}

func TestWantRefreshDeterministic(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute))
	defer qc.Close()

	now := mock.Now()
	env := envelope[string]{createdAt: now, expiresAt: now.Add(time.Minute)}

	require.False(t, qc.wantRefresh(env))
	mock.Add(time.Minute)
	require.False(t, qc.wantRefresh(env)) // boundary itself is still fresh
	mock.Add(time.Nanosecond)
	require.True(t, qc.wantRefresh(env))
}

func TestWantRefreshNoExpiry(t *testing.T) {
	qc := New[string]("t")
	defer qc.Close()

	require.False(t, qc.wantRefresh(envelope[string]{}))
}

func TestWantRefreshBeta(t *testing.T) {
	mock := clock.NewMock()
	qc := New[string]("t", WithClock(mock), WithTTL(time.Minute), WithBetaRefresh(1.0, 0.5))
	defer qc.Close()

	now := mock.Now()
	env := envelope[string]{createdAt: now, expiresAt: now.Add(time.Minute)}

	// Below the coefficient floor early refresh never fires.
	mock.Add(20 * time.Second)
	require.False(t, qc.wantRefresh(env))

	// Far past the window the probability is effectively 1.
	mock.Add(100 * time.Minute)
	require.True(t, qc.wantRefresh(env))
}

func TestCleanupSweepsExpired(t *testing.T) {
	mock := clock.NewMock()
	qc := New[int]("t", WithClock(mock), WithStaleTTL(time.Minute))
	defer qc.Close()

	qc.Set("k1", 1, SetOptions[int]{})
	qc.Set("k2", 2, SetOptions[int]{})

	require.Equal(t, 0, qc.Cleanup())
	mock.Add(2 * time.Minute)
	require.Equal(t, 2, qc.Cleanup())
	require.Zero(t, qc.Len())
}

func TestStats(t *testing.T) {
	qc := New[int]("named")
	defer qc.Close()

	qc.Set("k1", 1, SetOptions[int]{Tags: []string{"a", "b"}})
	qc.Set("k2", 2, SetOptions[int]{Tags: []string{"a"}})

	s := qc.Stats()
	require.Equal(t, "named", s.Cache.Name)
	require.Equal(t, 2, s.Cache.Size)
	require.Equal(t, 2, s.Tags)
	require.Equal(t, 3, s.TaggedKeys)
	require.Zero(t, s.ActiveRefreshes)
}
