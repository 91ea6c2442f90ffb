package rate

import (
	"context"

	"go.uber.org/ratelimit"
)

// Jitter converts a leaky-bucket limiter into a channel of permits so
// that callers can pace work with select-based loops. The provider
// goroutine stops when ctx is cancelled.
type Jitter struct {
	ch    chan struct{}
	lim   ratelimit.Limiter
	limit int
}

// NewJitter builds a pacer that emits at most limit permits per second,
// with a small burst buffer of ~10% of the rate.
func NewJitter(ctx context.Context, limit int) *Jitter {
	if limit < 1 {
		limit = 1
	}
	burst := limit / 10
	if burst < 1 {
		burst = 1
	}

	j := &Jitter{
		ch:    make(chan struct{}, burst),
		lim:   ratelimit.New(limit),
		limit: limit,
	}
	go j.provide(ctx)
	return j
}

func (j *Jitter) provide(ctx context.Context) {
	defer close(j.ch)
	for {
		j.lim.Take()
		select {
		case <-ctx.Done():
			return
		case j.ch <- struct{}{}:
		}
	}
}

// Take blocks until a permit is available.
func (j *Jitter) Take() {
	<-j.ch
}

// Chan exposes the permit channel for use in select statements.
func (j *Jitter) Chan() <-chan struct{} {
	return j.ch
}

// Limit returns the configured permits-per-second rate.
func (j *Jitter) Limit() int {
	return j.limit
}
