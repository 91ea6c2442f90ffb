package rate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestJitterPacesTakes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := NewJitter(ctx, 100)
	require.Equal(t, 100, j.Limit())

	start := time.Now()
	for i := 0; i < 20; i++ {
		j.Take()
	}
	elapsed := time.Since(start)

	// 20 permits at 100/s cost roughly 200ms minus the burst buffer.
	require.GreaterOrEqual(t, elapsed, 50*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)
}

func TestJitterChanClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	j := NewJitter(ctx, 1000)
	cancel()

	// Drain until the provider observes cancellation and closes.
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-j.Chan():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("permit channel never closed")
		}
	}
}

func TestJitterFloorsLimit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	j := NewJitter(ctx, 0)
	require.Equal(t, 1, j.Limit())
}
