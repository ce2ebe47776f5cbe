// Package ptp implements the free-running timestamp clock and the
// transmit-side timestamp correlation table.
//
// Timestamps are fixed-point nanoseconds: the low 16 bits are the fractional
// part, everything above is whole nanoseconds. The reference hardware carries
// 96 bits; the model keeps the value in a uint64, which covers simulation runs
// of several thousand years at gigabit edge rates.
package ptp

import "fmt"

// FracBits is the width of the fractional nanosecond field.
const FracBits = 16

// DefaultPeriodNs is the clock period of a 1G MAC octet edge (8 ns).
const DefaultPeriodNs = 8

// Timestamp is a fixed-point nanosecond counter value ((ns << 16) | frac).
type Timestamp uint64

// Nanoseconds returns the whole-nanosecond part of the timestamp.
func (t Timestamp) Nanoseconds() uint64 {
	return uint64(t) >> FracBits
}

// Float returns the timestamp in nanoseconds including the fractional part.
func (t Timestamp) Float() float64 {
	return float64(t) / (1 << FracBits)
}

func (t Timestamp) String() string {
	return fmt.Sprintf("%.4fns", t.Float())
}

// Clock is a free-running counter owned by one timing domain. It advances by
// one period per active edge of that domain; gated-off edges do not move it.
type Clock struct {
	now    Timestamp
	period Timestamp
}

// NewClock creates a clock advancing periodNs nanoseconds per active edge.
// A zero periodNs selects the 1G default of 8 ns.
func NewClock(periodNs uint64) *Clock {
	if periodNs == 0 {
		periodNs = DefaultPeriodNs
	}
	return &Clock{period: Timestamp(periodNs << FracBits)}
}

// Tick advances the clock by one period. Called once per active edge.
func (c *Clock) Tick() {
	c.now += c.period
}

// Now returns the current counter value.
func (c *Clock) Now() Timestamp {
	return c.now
}

// Period returns the per-edge increment.
func (c *Clock) Period() Timestamp {
	return c.period
}
