// Package telemetry periodically logs manager-wide cache statistics.
package telemetry

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/cachekit/cachekit/internal/shared/bytes"
	"github.com/cachekit/cachekit/manager"
)

// Logs samples the manager's aggregate stats once per interval and logs
// per-interval deltas of the monotonic counters plus current totals.
type Logs struct {
	ctx      context.Context
	cancel   context.CancelFunc
	mgr      *manager.Manager
	log      zerolog.Logger
	clk      clock.Clock
	interval time.Duration
}

// New starts the telemetry loop. Close it to stop logging.
func New(ctx context.Context, mgr *manager.Manager, log zerolog.Logger, interval time.Duration) *Logs {
	return newWithClock(ctx, mgr, log, interval, clock.New())
}

func newWithClock(ctx context.Context, mgr *manager.Manager, log zerolog.Logger, interval time.Duration, clk clock.Clock) *Logs {
	if interval <= 0 {
		interval = time.Minute
	}
	ctx, cancel := context.WithCancel(ctx)
	l := &Logs{
		ctx:      ctx,
		cancel:   cancel,
		mgr:      mgr,
		log:      log,
		clk:      clk,
		interval: interval,
	}
	go l.loop()
	return l
}

// Interval returns the logging period.
func (l *Logs) Interval() time.Duration {
	return l.interval
}

// Close stops the telemetry loop.
func (l *Logs) Close() error {
	l.cancel()
	return nil
}

// snapshot holds cumulative counters (monotonic).
type snapshot struct {
	hits        int64
	misses      int64
	evictions   int64
	expirations int64
}

func sample(s manager.Stats) snapshot {
	var out snapshot
	out.hits = s.TotalHits
	out.misses = s.TotalMisses
	for _, cs := range s.Caches {
		out.evictions += cs.Evictions
		out.expirations += cs.Expirations
	}
	for _, qs := range s.QueryCaches {
		out.evictions += qs.Cache.Evictions
		out.expirations += qs.Cache.Expirations
	}
	return out
}

// delta converts cumulative snapshots to per-interval figures. If a
// counter went backwards (manager swapped out), the current value is
// treated as the delta.
func delta(prev, cur snapshot) snapshot {
	return snapshot{
		hits:        monotonic(prev.hits, cur.hits),
		misses:      monotonic(prev.misses, cur.misses),
		evictions:   monotonic(prev.evictions, cur.evictions),
		expirations: monotonic(prev.expirations, cur.expirations),
	}
}

func monotonic(prev, cur int64) int64 {
	if cur >= prev {
		return cur - prev
	}
	return cur
}

func (l *Logs) loop() {
	ticker := l.clk.Ticker(l.interval)
	defer ticker.Stop()

	prev := sample(l.mgr.Stats())

	for {
		select {
		case <-l.ctx.Done():
			return
		case <-ticker.C:
			stats := l.mgr.Stats()
			cur := sample(stats)
			d := delta(prev, cur)
			prev = cur

			l.log.Info().
				Str("interval", l.interval.String()).
				Int("caches", stats.TotalCaches).
				Int("entries", stats.TotalEntries).
				Str("size", bytes.FmtMem(uint64(max(stats.TotalBytes, 0)))).
				Int64("hits", d.hits).
				Int64("misses", d.misses).
				Int64("evictions", d.evictions).
				Int64("expirations", d.expirations).
				Msg("cache_stats")
		}
	}
}
