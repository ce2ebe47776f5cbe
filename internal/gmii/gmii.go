// Package gmii models the octet-stream boundary of the MAC: per-edge symbols
// carrying one data octet with valid and error flags, and the framing
// conventions of the line (preamble, start-of-frame delimiter, frame check
// sequence, inter-frame gap).
//
// The physical 8b line encoding itself is out of scope; this is the boundary
// the MAC consumes and produces, one symbol per active clock edge.
package gmii

import "hash/crc32"

const (
	// PreambleByte precedes the start-of-frame delimiter.
	PreambleByte = 0x55
	// SFD is the start-of-frame delimiter octet.
	SFD = 0xD5
	// PreambleLen is the number of preamble octets before the SFD.
	PreambleLen = 7
	// FCSLen is the length of the trailing frame check sequence.
	FCSLen = 4

	// DefaultIFG is the standard inter-frame gap in octets.
	DefaultIFG = 12
	// MinFrameLen is the minimum Ethernet frame length including FCS.
	MinFrameLen = 64
)

// Symbol is the value on the octet-stream boundary during one clock edge.
// Valid frames data octets; Err marks a line-level error during the octet.
// Outside a frame Valid is false and Data is ignored.
type Symbol struct {
	Data  byte
	Valid bool
	Err   bool
}

// FCS computes the Ethernet frame check sequence over b. Ethernet uses
// CRC-32/IEEE with the FCS appended least-significant byte first; appending
// the returned value little-endian yields a frame whose residue verifies.
func FCS(b []byte) uint32 {
	return crc32.ChecksumIEEE(b)
}

// AppendFCS appends the FCS for b in line byte order.
func AppendFCS(b []byte) []byte {
	f := FCS(b)
	return append(b, byte(f), byte(f>>8), byte(f>>16), byte(f>>24))
}

// CheckFCS reports whether the trailing four octets of raw are the correct
// FCS for the preceding octets.
func CheckFCS(raw []byte) bool {
	if len(raw) < FCSLen+1 {
		return false
	}
	body := raw[:len(raw)-FCSLen]
	t := raw[len(raw)-FCSLen:]
	got := uint32(t[0]) | uint32(t[1])<<8 | uint32(t[2])<<16 | uint32(t[3])<<24
	return FCS(body) == got
}

// Pad zero-extends payload to minLen octets. The returned slice may alias
// payload when no padding is needed.
func Pad(payload []byte, minLen int) []byte {
	if len(payload) >= minLen {
		return payload
	}
	padded := make([]byte, minLen)
	copy(padded, payload)
	return padded
}
