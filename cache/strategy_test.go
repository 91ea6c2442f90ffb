package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStrategyValid(t *testing.T) {
	for _, s := range []Strategy{LRU, FIFO, LFU, TTL} {
		require.True(t, s.Valid(), s)
	}
	require.False(t, Strategy("arc").Valid())
}

func TestVictimLess(t *testing.T) {
	base := time.Unix(1000, 0)

	older := &Entry[int]{CreatedAt: base, LastAccessed: base.Add(time.Minute), AccessCount: 10, ExpiresAt: base.Add(time.Hour)}
	newer := &Entry[int]{CreatedAt: base.Add(time.Second), LastAccessed: base, AccessCount: 2, ExpiresAt: base.Add(time.Minute)}

	t.Run("lru orders by last access", func(t *testing.T) {
		require.True(t, victimLess(LRU, newer, older))
		require.False(t, victimLess(LRU, older, newer))
	})

	t.Run("fifo orders by creation", func(t *testing.T) {
		require.True(t, victimLess(FIFO, older, newer))
	})

	t.Run("lfu orders by access count", func(t *testing.T) {
		require.True(t, victimLess(LFU, newer, older))
	})

	t.Run("ttl orders by soonest expiry", func(t *testing.T) {
		require.True(t, victimLess(TTL, newer, older))

		noExpiry := &Entry[int]{CreatedAt: base, LastAccessed: base}
		require.True(t, victimLess(TTL, older, noExpiry))
		require.False(t, victimLess(TTL, noExpiry, older))
	})

	t.Run("unrecognized falls back to lru", func(t *testing.T) {
		require.True(t, victimLess(Strategy("arc"), newer, older))
	})
}
