package core

import "errors"

// ErrKind classifies why a frame carries an asserted error flag. Per-frame
// errors are data, not control flow: the pipeline advances one frame per
// cycle regardless of individual frame validity, and the kind only feeds
// counters and logs.
type ErrKind uint8

const (
	ErrNone ErrKind = iota
	// ErrFCS: frame check sequence mismatch.
	ErrFCS
	// ErrLine: an octet was flagged erroneous on the line during the frame.
	ErrLine
	// ErrFraming: malformed delimiter sequence, frame possibly truncated.
	ErrFraming
	// ErrUndersize: frame shorter than the configured minimum with padding
	// disabled.
	ErrUndersize
	// ErrControlDrop: recognized MAC control frame tagged for downstream
	// drop because control-frame forwarding is disabled.
	ErrControlDrop
)

func (k ErrKind) String() string {
	switch k {
	case ErrNone:
		return "none"
	case ErrFCS:
		return "fcs"
	case ErrLine:
		return "line"
	case ErrFraming:
		return "framing"
	case ErrUndersize:
		return "undersize"
	case ErrControlDrop:
		return "control_drop"
	}
	return "unknown"
}

// ErrBackpressure is returned when a bounded queue cannot accept another
// frame. The producer must hold the frame and retry; silent drops are
// reserved for paths with a documented drop policy.
var ErrBackpressure = errors.New("core: queue full, backpressure asserted")
