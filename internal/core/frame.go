// Package core defines the frame records exchanged between the MAC model
// packages.
package core

import (
	"github.com/ethlab/mac1g/internal/ptp"
)

// PriorityClasses is the number of independently pausable traffic classes
// (802.1Qbb).
const PriorityClasses = 8

// EthHeaderLen is the length of dst + src + EtherType.
const EthHeaderLen = 14

// HostFrame is a length-delimited frame on the host-facing boundary,
// dst through payload, without preamble or FCS.
//
// RX-to-host direction carries Err and Timestamp as out-of-band bits.
// Host-to-TX direction carries Class, Tag and WantTimestamp.
type HostFrame struct {
	Data []byte

	// Err is the frame error flag: bad FCS, tainted line octet, framing
	// violation, or a recognized control frame tagged for downstream drop.
	Err bool

	// Timestamp is the counter value captured at the frame's start
	// delimiter (RX direction).
	Timestamp ptp.Timestamp

	// Class is the priority class used for PFC admission (TX direction).
	Class uint8

	// Tag correlates the frame with its entry on the TX timestamp side
	// channel.
	Tag uint16

	// WantTimestamp requests a timestamp side-channel entry for this frame
	// (TX direction).
	WantTimestamp bool
}

// User packs the RX out-of-band bits the way the host interface carries
// them: (timestamp << 1) | error_bit.
func (f HostFrame) User() uint64 {
	u := uint64(f.Timestamp) << 1
	if f.Err {
		u |= 1
	}
	return u
}

// ParseUser splits a packed user field back into timestamp and error flag.
func ParseUser(u uint64) (ptp.Timestamp, bool) {
	return ptp.Timestamp(u >> 1), u&1 != 0
}

// Clone returns a deep copy. Frames cross the RX/TX boundary of the harness
// in tests, so aliasing the payload slice is not safe.
func (f HostFrame) Clone() HostFrame {
	c := f
	c.Data = append([]byte(nil), f.Data...)
	return c
}
