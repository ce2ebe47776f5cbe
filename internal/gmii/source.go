package gmii

// Frame is one frame queued for line transmission by a Source, dst through
// payload, without preamble or FCS.
type Frame struct {
	Payload []byte

	// ErrAt marks the payload octet index to flag as a line error during
	// transmission; -1 transmits cleanly.
	ErrAt int

	// CorruptFCS transmits a deliberately wrong frame check sequence.
	CorruptFCS bool

	// SFDEdge is filled in when the frame's start delimiter is emitted:
	// the source-local active edge count at that moment.
	SFDEdge uint64
}

// NewFrame wraps a payload in a clean line frame.
func NewFrame(payload []byte) *Frame {
	return &Frame{Payload: payload, ErrAt: -1}
}

// Source drives the MAC's ingress octet stream, one symbol per active edge:
// preamble, SFD, payload octets, FCS, then an inter-frame gap before the
// next queued frame. It stands in for the far end of the line.
type Source struct {
	// IFG is the gap in idle edges inserted between frames.
	IFG int

	queue []*Frame
	cur   *Frame
	raw   []byte
	errAt int
	pos   int
	gap   int
	edge  uint64
}

// NewSource creates a source with the given inter-frame gap.
func NewSource(ifg int) *Source {
	return &Source{IFG: ifg}
}

// Send queues a frame for transmission.
func (s *Source) Send(f *Frame) {
	s.queue = append(s.queue, f)
}

// Idle reports whether the source has nothing left to transmit.
func (s *Source) Idle() bool {
	return s.cur == nil && len(s.queue) == 0
}

// Next produces the symbol for one active edge.
func (s *Source) Next() Symbol {
	s.edge++

	if s.gap > 0 {
		s.gap--
		return Symbol{}
	}

	if s.cur == nil {
		if len(s.queue) == 0 {
			return Symbol{}
		}
		s.cur = s.queue[0]
		s.queue = s.queue[1:]
		s.raw, s.errAt = buildRaw(s.cur)
		s.pos = 0
	}

	sym := Symbol{Data: s.raw[s.pos], Valid: true, Err: s.pos == s.errAt}
	if s.pos == PreambleLen {
		s.cur.SFDEdge = s.edge
	}
	s.pos++
	if s.pos == len(s.raw) {
		s.cur = nil
		s.gap = s.IFG
	}
	return sym
}

// buildRaw lays out the line octets for f and translates its payload error
// position into a raw-stream position.
func buildRaw(f *Frame) (raw []byte, errAt int) {
	raw = make([]byte, 0, PreambleLen+1+len(f.Payload)+FCSLen)
	for i := 0; i < PreambleLen; i++ {
		raw = append(raw, PreambleByte)
	}
	raw = append(raw, SFD)
	raw = append(raw, f.Payload...)
	// FCS covers dst..payload, not the preamble.
	raw = append(raw, fcsBytes(f.Payload, f.CorruptFCS)...)

	errAt = -1
	if f.ErrAt >= 0 && f.ErrAt < len(f.Payload) {
		errAt = PreambleLen + 1 + f.ErrAt
	}
	return raw, errAt
}

func fcsBytes(payload []byte, corrupt bool) []byte {
	f := FCS(payload)
	if corrupt {
		f = ^f
	}
	return []byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
}
