package pause

import (
	"fmt"

	"github.com/ethlab/mac1g/internal/mcf"
)

// LFCGenConfig configures link flow control frame generation. Loaded before
// operation, read-only while the MAC runs.
type LFCGenConfig struct {
	Params  mcf.TxParams
	Enable  bool
	Quanta  uint16
	Refresh uint16
}

// PFCGenConfig configures priority flow control frame generation.
type PFCGenConfig struct {
	Params  mcf.TxParams
	Enable  bool
	Quanta  [8]uint16
	Refresh [8]uint16
}

// Pending is a synthesized control frame waiting for a slot on the line.
type Pending struct {
	Kind mcf.Kind
	Data []byte
}

// Transmitter is the request-driven emitter: external pause-request inputs
// are sampled each active TX edge, and frames are synthesized on request
// changes, on refresh expiry while a request persists, and on manual resend.
//
// De-assertion emits a zero-quanta release frame so the peer resumes without
// waiting out the advertised quanta. When LFC and PFC both have a frame
// pending on the same edge, LFC is queued first.
//
// At most one frame per mechanism is staged at a time: a newer frame of the
// same kind replaces the staged one, the way a hardware pending register
// holds only the latest state until the line takes it. The stage therefore
// never grows faster than the line drains, whatever the refresh setting.
type Transmitter struct {
	lfc LFCGenConfig
	pfc PFCGenConfig

	// Sampled inputs.
	reqLFC    bool
	reqPFC    uint8
	resendLFC bool
	resendPFC bool

	// Advertised state and remaining advertised time, in quanta, with a
	// bit-time prescaler shared per mechanism.
	advLFC     bool
	lfcRemain  uint16
	lfcPrescal uint32

	advPFC     uint8
	pfcRemain  [8]uint16
	pfcPrescal uint32

	queue []Pending
}

// NewTransmitter creates a transmitter with no request asserted.
func NewTransmitter(lfc LFCGenConfig, pfc PFCGenConfig) *Transmitter {
	return &Transmitter{lfc: lfc, pfc: pfc}
}

// SetRequest sets the external pause-request inputs. The new values are
// observed on the next active edge.
func (t *Transmitter) SetRequest(lfc bool, pfc uint8) {
	t.reqLFC = lfc
	t.reqPFC = pfc
}

// Resend arms the manual resend triggers; each fires once, on the next
// active edge, independent of the refresh timers.
func (t *Transmitter) Resend(lfc, pfc bool) {
	t.resendLFC = t.resendLFC || lfc
	t.resendPFC = t.resendPFC || pfc
}

// Tick samples the request inputs for one active TX edge and synthesizes
// whatever control frames the edge calls for.
func (t *Transmitter) Tick() error {
	if err := t.tickLFC(); err != nil {
		return err
	}
	return t.tickPFC()
}

func (t *Transmitter) tickLFC() error {
	if !t.lfc.Enable {
		return nil
	}

	emit := false
	switch {
	case t.reqLFC != t.advLFC:
		t.advLFC = t.reqLFC
		emit = true
	case t.resendLFC:
		emit = true
	case t.advLFC:
		// Count down the advertised time; refresh before the peer's
		// countdown reaches the configured threshold.
		t.lfcPrescal += DataWidthBits
		for t.lfcPrescal >= QuantumBits {
			t.lfcPrescal -= QuantumBits
			if t.lfcRemain > 0 {
				t.lfcRemain--
			}
		}
		if t.lfc.Refresh > 0 && t.lfcRemain <= t.lfc.Refresh {
			emit = true
		}
	}
	t.resendLFC = false
	if !emit {
		return nil
	}

	quanta := uint16(0)
	if t.advLFC {
		quanta = t.lfc.Quanta
	}
	t.lfcRemain = quanta
	t.lfcPrescal = 0

	data, err := mcf.BuildLFC(t.lfc.Params, quanta)
	if err != nil {
		return fmt.Errorf("pause: build lfc frame: %w", err)
	}
	t.enqueue(mcf.KindLFC, data)
	return nil
}

func (t *Transmitter) tickPFC() error {
	if !t.pfc.Enable {
		return nil
	}

	emit := false
	enable := t.reqPFC
	switch {
	case t.reqPFC != t.advPFC:
		// Advertise every class that changed: newly requested classes get
		// full quanta, released classes get zero.
		enable = t.reqPFC | t.advPFC
		t.advPFC = t.reqPFC
		emit = true
	case t.resendPFC:
		enable = t.advPFC
		emit = t.advPFC != 0
	case t.advPFC != 0:
		t.pfcPrescal += DataWidthBits
		ticks := uint16(0)
		for t.pfcPrescal >= QuantumBits {
			t.pfcPrescal -= QuantumBits
			ticks++
		}
		for i := 0; i < 8; i++ {
			if t.advPFC&(1<<i) == 0 {
				continue
			}
			if t.pfcRemain[i] > ticks {
				t.pfcRemain[i] -= ticks
			} else {
				t.pfcRemain[i] = 0
			}
			if t.pfc.Refresh[i] > 0 && t.pfcRemain[i] <= t.pfc.Refresh[i] {
				emit = true
			}
		}
		enable = t.advPFC
	}
	t.resendPFC = false
	if !emit {
		return nil
	}

	var quanta [8]uint16
	for i := 0; i < 8; i++ {
		if t.advPFC&(1<<i) != 0 {
			quanta[i] = t.pfc.Quanta[i]
			t.pfcRemain[i] = t.pfc.Quanta[i]
		}
	}
	t.pfcPrescal = 0

	data, err := mcf.BuildPFC(t.pfc.Params, enable, quanta)
	if err != nil {
		return fmt.Errorf("pause: build pfc frame: %w", err)
	}
	t.enqueue(mcf.KindPFC, data)
	return nil
}

// enqueue stages a synthesized frame, replacing a still-pending frame of the
// same kind with the newer state.
func (t *Transmitter) enqueue(kind mcf.Kind, data []byte) {
	for i := range t.queue {
		if t.queue[i].Kind == kind {
			t.queue[i].Data = data
			return
		}
	}
	t.queue = append(t.queue, Pending{Kind: kind, Data: data})
}

// PopPending removes and returns the oldest synthesized frame.
func (t *Transmitter) PopPending() (Pending, bool) {
	if len(t.queue) == 0 {
		return Pending{}, false
	}
	p := t.queue[0]
	t.queue = t.queue[1:]
	return p, true
}

// PendingCount returns the number of frames waiting for a line slot.
func (t *Transmitter) PendingCount() int {
	return len(t.queue)
}
