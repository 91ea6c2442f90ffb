// Package random provides a cheap lock-free uniform source for
// probability checks on hot cache paths.
package random

import (
	"sync/atomic"
	"time"
)

// SplitMix64 state; advanced atomically so concurrent readers never
// observe the same draw.
var state atomic.Uint64

func init() {
	seed := uint64(time.Now().UnixNano())
	if seed == 0 {
		seed = 0x9e3779b97f4a7c15
	}
	state.Store(mix(seed))
}

// Float64 returns a uniform value in [0,1) built from the top 53 bits
// of a SplitMix64 step.
func Float64() float64 {
	x := state.Add(0x9e3779b97f4a7c15)
	const inv53 = 1.0 / (1 << 53)
	return float64(mix(x)>>11) * inv53
}

func mix(z uint64) uint64 {
	z ^= z >> 30
	z *= 0xbf58476d1ce4e5b9
	z ^= z >> 27
	z *= 0x94d049bb133111eb
	z ^= z >> 31
	return z
}
