package ptp

import "fmt"

// TxTimestamp is one entry on the transmit timestamp side channel: the
// counter value captured when the frame's start delimiter left the MAC,
// together with the tag the host attached when it submitted the frame.
type TxTimestamp struct {
	Timestamp Timestamp
	Tag       uint16
}

// Correlator is the bounded in-flight table matching transmitted frames to
// their asynchronously delivered timestamps. The modeled hardware pipeline
// holds a small fixed number of frames, so the table is a fixed-capacity ring
// rather than an unbounded map.
type Correlator struct {
	pending []TxTimestamp
	head    int
	count   int
	nextTag uint16
}

// DefaultDepth matches the pipeline depth of the modeled MAC.
const DefaultDepth = 16

// NewCorrelator creates a correlator with the given in-flight capacity.
// Zero selects DefaultDepth.
func NewCorrelator(depth int) *Correlator {
	if depth <= 0 {
		depth = DefaultDepth
	}
	return &Correlator{pending: make([]TxTimestamp, depth)}
}

// IssueTag hands out the next wrapping tag for a host frame submitted without
// one. Tags of in-flight frames stay unique as long as the pipeline depth is
// below 2^16, which the bounded table guarantees.
func (c *Correlator) IssueTag() uint16 {
	tag := c.nextTag
	c.nextTag++
	return tag
}

// Capture records the timestamp for a frame whose start delimiter was just
// emitted. It fails when the table is full, which means the consumer stopped
// draining the side channel; the caller must apply backpressure upstream
// instead of dropping the entry.
func (c *Correlator) Capture(tag uint16, ts Timestamp) error {
	if c.count == len(c.pending) {
		return fmt.Errorf("ptp: timestamp table full (depth %d)", len(c.pending))
	}
	c.pending[(c.head+c.count)%len(c.pending)] = TxTimestamp{Timestamp: ts, Tag: tag}
	c.count++
	return nil
}

// Pop delivers the oldest captured timestamp, if any.
func (c *Correlator) Pop() (TxTimestamp, bool) {
	if c.count == 0 {
		return TxTimestamp{}, false
	}
	e := c.pending[c.head]
	c.head = (c.head + 1) % len(c.pending)
	c.count--
	return e, true
}

// Pending returns the number of in-flight entries.
func (c *Correlator) Pending() int {
	return c.count
}

// Full reports whether another Capture would fail.
func (c *Correlator) Full() bool {
	return c.count == len(c.pending)
}
