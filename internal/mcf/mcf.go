// Package mcf recognizes and synthesizes MAC control frames (EtherType
// 0x8808): 802.3x link flow control and 802.1Qbb priority flow control.
package mcf

import "net"

const (
	// EtherTypeFlowControl is the MAC control EtherType.
	EtherTypeFlowControl = 0x8808
	// OpcodeLFC is the 802.3x pause opcode.
	OpcodeLFC = 0x0001
	// OpcodePFC is the 802.1Qbb per-priority pause opcode.
	OpcodePFC = 0x0101
)

// PauseMulticast is the reserved 802.3x pause destination address.
var PauseMulticast = net.HardwareAddr{0x01, 0x80, 0xC2, 0x00, 0x00, 0x01}

// Kind is the classification of a received frame.
type Kind int

const (
	// KindData: not a recognized MAC control frame, forward as data.
	KindData Kind = iota
	// KindLFC: link flow control pause frame.
	KindLFC
	// KindPFC: priority flow control pause frame.
	KindPFC
	// KindUnknownOpcode: address and EtherType checks passed but the
	// opcode matched neither configured value. Forwarded as data.
	KindUnknownOpcode
)

func (k Kind) String() string {
	switch k {
	case KindData:
		return "data"
	case KindLFC:
		return "lfc"
	case KindPFC:
		return "pfc"
	case KindUnknownOpcode:
		return "unknown_opcode"
	}
	return "invalid"
}

// Result carries the classification of one received frame together with the
// pause parameters extracted from a recognized control frame.
type Result struct {
	Kind Kind

	// Quanta is the global pause time for an LFC frame.
	Quanta uint16

	// ClassEnable is the PFC priority-enable bitmap, bit i for class i.
	ClassEnable uint8

	// ClassQuanta are the per-priority pause times of a PFC frame.
	ClassQuanta [8]uint16
}

// Control reports whether the frame feeds the pause state machine.
func (r Result) Control() bool {
	return r.Kind == KindLFC || r.Kind == KindPFC
}
