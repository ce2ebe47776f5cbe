package gmii

// RxFrame is a frame reassembled from the line by a Sink.
type RxFrame struct {
	// Payload is dst through payload, FCS stripped.
	Payload []byte

	// FCSOk reports whether the trailing FCS verified.
	FCSOk bool

	// Err is set when any octet of the frame carried a line error flag.
	Err bool

	// FramingErr is set when the delimiter sequence was malformed (data
	// burst without preamble/SFD, or a burst too short to carry an FCS).
	FramingErr bool

	// SFDEdge is the sink-local active edge count when the start delimiter
	// was observed (zero for frames without one).
	SFDEdge uint64
}

type sinkState int

const (
	sinkIdle sinkState = iota
	sinkPreamble
	sinkPayload
)

// Sink reassembles frames from the MAC's egress octet stream, one symbol per
// active edge. It stands in for the far end of the line and verifies the
// framing the MAC produced. Malformed framing is reported on the resulting
// frame, never silently discarded.
type Sink struct {
	state   sinkState
	cur     []byte
	curErr  bool
	badSOF  bool
	sfdEdge uint64
	edge    uint64
	frames  []*RxFrame
}

// NewSink creates an empty sink.
func NewSink() *Sink {
	return &Sink{}
}

// Push consumes the symbol for one active edge.
func (k *Sink) Push(sym Symbol) {
	k.edge++

	if !sym.Valid {
		if k.state != sinkIdle {
			k.finish()
		}
		return
	}

	switch k.state {
	case sinkIdle:
		k.cur = k.cur[:0]
		k.curErr = sym.Err
		k.badSOF = false
		k.sfdEdge = 0
		if sym.Data == PreambleByte {
			k.state = sinkPreamble
			return
		}
		if sym.Data == SFD {
			k.state = sinkPayload
			k.sfdEdge = k.edge
			return
		}
		// Data with no start delimiter: framing violation, keep collecting
		// so the frame can be delivered (and counted) downstream.
		k.badSOF = true
		k.state = sinkPayload
		k.cur = append(k.cur, sym.Data)

	case sinkPreamble:
		k.curErr = k.curErr || sym.Err
		switch sym.Data {
		case PreambleByte:
			// still in preamble
		case SFD:
			k.state = sinkPayload
			k.sfdEdge = k.edge
		default:
			k.badSOF = true
			k.state = sinkPayload
			k.cur = append(k.cur, sym.Data)
		}

	case sinkPayload:
		k.curErr = k.curErr || sym.Err
		k.cur = append(k.cur, sym.Data)
	}
}

func (k *Sink) finish() {
	f := &RxFrame{
		Err:        k.curErr,
		FramingErr: k.badSOF,
		SFDEdge:    k.sfdEdge,
	}
	if len(k.cur) > FCSLen {
		f.FCSOk = CheckFCS(k.cur)
		f.Payload = append([]byte(nil), k.cur[:len(k.cur)-FCSLen]...)
	} else {
		f.FramingErr = true
		f.Payload = append([]byte(nil), k.cur...)
	}
	k.frames = append(k.frames, f)
	k.state = sinkIdle
}

// Recv pops the oldest reassembled frame.
func (k *Sink) Recv() (*RxFrame, bool) {
	if len(k.frames) == 0 {
		return nil, false
	}
	f := k.frames[0]
	k.frames = k.frames[1:]
	return f, true
}

// Empty reports whether no complete frames are waiting.
func (k *Sink) Empty() bool {
	return len(k.frames) == 0
}

// Count returns the number of frames waiting.
func (k *Sink) Count() int {
	return len(k.frames)
}
