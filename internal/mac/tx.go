package mac

import (
	"github.com/ethlab/mac1g/internal/core"
	"github.com/ethlab/mac1g/internal/gmii"
	"github.com/ethlab/mac1g/internal/log"
	"github.com/ethlab/mac1g/internal/metrics"
	"github.com/ethlab/mac1g/internal/pause"
	"github.com/ethlab/mac1g/internal/ptp"
)

type txState int

const (
	txIdle txState = iota
	txFrame
	txGap
)

// TxPath is the transmit datapath: host frame records in, octet-stream out.
// Host data frames are interleaved with control frames synthesized by the
// pause transmitter; arbitration happens only at frame boundaries, control
// frames first, so an in-flight frame is never corrupted.
//
// All of its state advances on active TX-domain edges only. The pause
// receiver it consults for admission is owned by the RX domain; its state is
// observed on this domain's next active edge.
type TxPath struct {
	clk     *ptp.Clock
	corr    *ptp.Correlator
	gen     *pause.Transmitter
	pauseRx *pause.Receiver

	minFrame int
	padding  bool
	ifg      int

	// Runtime inputs, sampled each active edge.
	lfcPauseEn bool
	extPause   bool

	// Per-class submission queues: PFC must not let a paused class block
	// the others, and frames within a class are never reordered.
	queues [core.PriorityClasses][]core.HostFrame
	queued int
	depth  int
	rr     int

	state   txState
	raw     []byte
	pos     int
	gap     int
	curTag  uint16
	wantTs  bool
	sfdDone bool
}

func newTxPath(cfg Config, clk *ptp.Clock, pauseRx *pause.Receiver) *TxPath {
	return &TxPath{
		clk:      clk,
		corr:     ptp.NewCorrelator(cfg.TimestampDepth),
		gen:      pause.NewTransmitter(cfg.TxLFC, cfg.TxPFC),
		pauseRx:  pauseRx,
		minFrame: cfg.MinFrameLength,
		padding:  cfg.PaddingEnable,
		ifg:      cfg.IFG,
		depth:    cfg.HostQueueDepth,
	}
}

// Submit queues a host frame for transmission. Fails with
// core.ErrBackpressure when the bounded queue is full; the caller holds the
// frame and retries.
func (p *TxPath) Submit(f core.HostFrame) error {
	if f.Class >= core.PriorityClasses {
		f.Class = core.PriorityClasses - 1
	}
	if p.queued >= p.depth {
		return core.ErrBackpressure
	}
	p.queues[f.Class] = append(p.queues[f.Class], f)
	p.queued++
	return nil
}

// SetPauseRequest sets the external pause-request inputs feeding the pause
// frame generator.
func (p *TxPath) SetPauseRequest(lfc bool, pfc uint8) {
	p.gen.SetRequest(lfc, pfc)
}

// Resend arms the manual pause-frame resend triggers.
func (p *TxPath) Resend(lfc, pfc bool) {
	p.gen.Resend(lfc, pfc)
}

// SetLFCPauseEnable controls whether received global pause gates the data
// path.
func (p *TxPath) SetLFCPauseEnable(en bool) {
	p.lfcPauseEn = en
}

// SetExternalPause pauses the data path directly, without emitting anything.
func (p *TxPath) SetExternalPause(en bool) {
	p.extPause = en
}

// Timestamps exposes the TX timestamp side channel.
func (p *TxPath) Timestamps() *ptp.Correlator {
	return p.corr
}

// IssueTag hands out the next correlation tag for a host frame.
func (p *TxPath) IssueTag() uint16 {
	return p.corr.IssueTag()
}

// QueuedFrames returns the number of host frames waiting for transmission.
func (p *TxPath) QueuedFrames() int {
	return p.queued
}

// Busy reports whether a frame is on the wire or waiting for one.
func (p *TxPath) Busy() bool {
	return p.state != txIdle || p.queued > 0 || p.gen.PendingCount() > 0
}

// Tick advances one active TX edge and returns the symbol driven onto the
// line during that edge.
func (p *TxPath) Tick() (gmii.Symbol, error) {
	p.clk.Tick()
	if err := p.gen.Tick(); err != nil {
		return gmii.Symbol{}, err
	}

	switch p.state {
	case txGap:
		p.gap--
		if p.gap <= 0 {
			p.state = txIdle
		}
		return gmii.Symbol{}, nil

	case txIdle:
		if !p.startFrame() {
			return gmii.Symbol{}, nil
		}
		fallthrough

	case txFrame:
		sym := gmii.Symbol{Data: p.raw[p.pos], Valid: true}
		if p.pos == gmii.PreambleLen && !p.sfdDone {
			p.sfdDone = true
			if p.wantTs {
				if err := p.corr.Capture(p.curTag, p.clk.Now()); err != nil {
					return sym, err
				}
				metrics.TimestampsTotal.Inc()
			}
		}
		p.pos++
		if p.pos == len(p.raw) {
			p.state = txGap
			p.gap = p.ifg
		}
		return sym, nil
	}
	return gmii.Symbol{}, nil
}

// startFrame arbitrates the next frame at a frame boundary. Control frames
// synthesized by the pause generator win; among those, LFC precedes PFC by
// queue order. Data frames are admitted per class, round-robin among the
// classes the peer has not paused.
func (p *TxPath) startFrame() bool {
	if pend, ok := p.gen.PopPending(); ok {
		p.loadFrame(pend.Data, true)
		metrics.PauseFramesTotal.WithLabelValues("tx", pend.Kind.String()).Inc()
		log.GetLogger().WithField("mechanism", pend.Kind.String()).
			Debug("pause frame transmitted")
		return true
	}

	if p.queued == 0 || p.dataBlocked() {
		return false
	}
	for i := 0; i < core.PriorityClasses; i++ {
		class := (p.rr + i) % core.PriorityClasses
		if len(p.queues[class]) == 0 || p.pauseRx.PFCPaused(uint8(class)) {
			continue
		}
		f := p.queues[class][0]
		if f.WantTimestamp && p.corr.Full() {
			// Side channel not drained: hold the frame rather than lose
			// the correlation.
			continue
		}
		p.queues[class] = p.queues[class][1:]
		p.queued--
		p.rr = (class + 1) % core.PriorityClasses
		p.curTag = f.Tag
		p.wantTs = f.WantTimestamp
		p.loadFrame(f.Data, false)
		metrics.FramesTotal.WithLabelValues("tx").Inc()
		return true
	}
	return false
}

// dataBlocked reports global data-path gating: the external pause input, or
// received global pause when enabled to act on this side.
func (p *TxPath) dataBlocked() bool {
	if p.extPause {
		return true
	}
	return p.lfcPauseEn && p.pauseRx.LFCPaused()
}

// loadFrame lays out the line octets for one frame: preamble, SFD, payload
// (zero-padded to the configured minimum when padding is enabled), FCS.
func (p *TxPath) loadFrame(payload []byte, ctrl bool) {
	if p.padding {
		payload = gmii.Pad(payload, p.minFrame-gmii.FCSLen)
	}
	raw := make([]byte, 0, gmii.PreambleLen+1+len(payload)+gmii.FCSLen)
	for i := 0; i < gmii.PreambleLen; i++ {
		raw = append(raw, gmii.PreambleByte)
	}
	raw = append(raw, gmii.SFD)
	raw = append(raw, payload...)
	fcs := gmii.FCS(payload)
	raw = append(raw, byte(fcs), byte(fcs>>8), byte(fcs>>16), byte(fcs>>24))

	p.raw = raw
	p.pos = 0
	p.sfdDone = false
	if ctrl {
		p.wantTs = false
	}
	p.state = txFrame
}
