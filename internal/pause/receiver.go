// Package pause implements the 802.3x / 802.1Qbb flow-control state
// machines: the receive half that turns accepted pause frames into admission
// gating, and the transmit half that turns pause requests into control
// frames.
//
// Pause durations are measured in quanta of 512 bit-times. The receive
// countdowns are kept in bit-times and decrement by the datapath width every
// active edge, so a quantum lasts 64 octet edges on the 8-bit datapath.
package pause

import "github.com/ethlab/mac1g/internal/mcf"

// QuantumBits is the number of bit-times per pause quantum.
const QuantumBits = 512

// DataWidthBits is the datapath width: bits retired per active edge.
const DataWidthBits = 8

// RxConfig selects which mechanisms the receive half processes. Loaded
// before operation, read-only while the MAC runs.
type RxConfig struct {
	LFCEnable bool
	PFCEnable bool
}

// Receiver accumulates received pause requests and drives admission gating.
// Owned by the RX domain; the TX domain reads the paused state on its own
// next active edge.
//
// Invariant: a class is paused exactly while its countdown is positive.
// A newly accepted quanta replaces the countdown, it never accumulates.
type Receiver struct {
	cfg RxConfig

	// Runtime enables sampled from the host every active edge. They gate
	// acceptance of new quanta, not countdowns already running.
	lfcEn bool
	pfcEn uint8

	// Acknowledgment inputs masking the peer-facing request outputs.
	lfcAck bool
	pfcAck uint8

	lfcBits uint32
	pfcBits [8]uint32
}

// NewReceiver creates a receiver in the unpaused state.
func NewReceiver(cfg RxConfig) *Receiver {
	return &Receiver{cfg: cfg}
}

// SetEnable sets the runtime pause-enable inputs: the LFC bit and the
// per-class PFC vector.
func (r *Receiver) SetEnable(lfc bool, pfc uint8) {
	r.lfcEn = lfc
	r.pfcEn = pfc
}

// SetAck sets the acknowledgment inputs.
func (r *Receiver) SetAck(lfc bool, pfc uint8) {
	r.lfcAck = lfc
	r.pfcAck = pfc
}

// OnControl applies an accepted control frame. Called by the RX path when
// the classifier recognized a pause frame on a frame that passed its FCS.
func (r *Receiver) OnControl(res mcf.Result) {
	switch res.Kind {
	case mcf.KindLFC:
		if r.cfg.LFCEnable && r.lfcEn {
			r.lfcBits = uint32(res.Quanta) * QuantumBits
		}
	case mcf.KindPFC:
		if !r.cfg.PFCEnable {
			return
		}
		for i := 0; i < 8; i++ {
			if res.ClassEnable&(1<<i) != 0 && r.pfcEn&(1<<i) != 0 {
				r.pfcBits[i] = uint32(res.ClassQuanta[i]) * QuantumBits
			}
		}
	}
}

// Tick retires one active edge worth of pause time on every running
// countdown.
func (r *Receiver) Tick() {
	r.lfcBits = sub(r.lfcBits, DataWidthBits)
	for i := range r.pfcBits {
		r.pfcBits[i] = sub(r.pfcBits[i], DataWidthBits)
	}
}

func sub(v, d uint32) uint32 {
	if v <= d {
		return 0
	}
	return v - d
}

// LFCPaused reports whether global pause is in effect.
func (r *Receiver) LFCPaused() bool {
	return r.lfcBits > 0
}

// PFCPaused reports whether the given priority class is paused.
func (r *Receiver) PFCPaused(class uint8) bool {
	return class < 8 && r.pfcBits[class] > 0
}

// PausedClasses returns the paused classes as a bit vector.
func (r *Receiver) PausedClasses() uint8 {
	var v uint8
	for i := range r.pfcBits {
		if r.pfcBits[i] > 0 {
			v |= 1 << i
		}
	}
	return v
}

// LFCRequest is the peer-facing global pause-request output, masked by the
// acknowledgment input.
func (r *Receiver) LFCRequest() bool {
	return r.LFCPaused() && !r.lfcAck
}

// PFCRequest is the peer-facing per-class pause-request output, masked by
// the acknowledgment inputs.
func (r *Receiver) PFCRequest() uint8 {
	return r.PausedClasses() &^ r.pfcAck
}
