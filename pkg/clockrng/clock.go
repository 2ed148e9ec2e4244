// Package clockrng provides stepflow's two sources of otherwise
// nondeterministic behavior, a virtual clock and a seeded PRNG (spec.md
// §4.I), both grounded directly on original_source/crates/rust-actions's
// clock.rs and determinism.rs: an atomic nanosecond counter standing in
// for wall time, and a seeded generator standing in for entropy, so that
// two runs given the same seed produce byte-identical output.
package clockrng

import (
	"sync/atomic"
	"time"
)

// Instant is an opaque point on a VirtualClock's timeline.
type Instant struct {
	nanos uint64
}

// VirtualClock is a clock that only moves when told to, never reading
// the wall clock, so step bodies that record timestamps stay
// reproducible across runs (spec.md invariant on determinism).
type VirtualClock struct {
	nanos atomic.Uint64
}

// NewVirtualClock returns a clock starting at zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now returns the current instant.
func (c *VirtualClock) Now() Instant {
	return Instant{nanos: c.nanos.Load()}
}

// ElapsedSince returns the duration between instant and the clock's
// current position, saturating at zero rather than going negative if
// instant is somehow ahead.
func (c *VirtualClock) ElapsedSince(instant Instant) time.Duration {
	now := c.nanos.Load()
	if now < instant.nanos {
		return 0
	}
	return time.Duration(now - instant.nanos)
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.nanos.Add(uint64(d))
}

// Set moves the clock to exactly d since its epoch.
func (c *VirtualClock) Set(d time.Duration) {
	c.nanos.Store(uint64(d))
}

// Reset returns the clock to zero.
func (c *VirtualClock) Reset() {
	c.nanos.Store(0)
}

// Current returns the duration elapsed since the clock's epoch.
func (c *VirtualClock) Current() time.Duration {
	return time.Duration(c.nanos.Load())
}
