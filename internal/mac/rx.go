package mac

import (
	"math/bits"

	"github.com/ethlab/mac1g/internal/core"
	"github.com/ethlab/mac1g/internal/gmii"
	"github.com/ethlab/mac1g/internal/log"
	"github.com/ethlab/mac1g/internal/mcf"
	"github.com/ethlab/mac1g/internal/metrics"
	"github.com/ethlab/mac1g/internal/pause"
	"github.com/ethlab/mac1g/internal/ptp"
)

type rxState int

const (
	rxIdle rxState = iota
	rxPreamble
	rxPayload
)

// RxPath is the receive datapath: octet-stream in, host frame records out.
// All of its state advances on active RX-domain edges only.
type RxPath struct {
	clk        *ptp.Clock
	classifier *mcf.Classifier
	pauseRx    *pause.Receiver

	minFrame int

	state   rxState
	cur     []byte
	lineErr bool
	badSOF  bool
	sfdTs   ptp.Timestamp

	// Host-facing delivery queue. Bounded: the line cannot be stalled, so
	// on overflow the completed frame is dropped and counted. This is the
	// one documented drop point in the model.
	out   []core.HostFrame
	depth int
}

func newRxPath(cfg Config, clk *ptp.Clock, pauseRx *pause.Receiver) *RxPath {
	return &RxPath{
		clk:        clk,
		classifier: mcf.NewClassifier(cfg.MCF),
		pauseRx:    pauseRx,
		minFrame:   cfg.MinFrameLength,
		depth:      cfg.HostQueueDepth,
	}
}

// Tick processes one active RX edge: the timestamp clock, the pause
// countdowns, and one symbol from the line.
func (p *RxPath) Tick(sym gmii.Symbol) {
	p.clk.Tick()
	p.pauseRx.Tick()
	metrics.PausedClasses.Set(float64(bits.OnesCount8(p.pauseRx.PausedClasses())))

	if !sym.Valid {
		if p.state != rxIdle {
			p.finishFrame()
		}
		return
	}

	switch p.state {
	case rxIdle:
		p.cur = p.cur[:0]
		p.lineErr = sym.Err
		p.badSOF = false
		switch sym.Data {
		case gmii.PreambleByte:
			p.state = rxPreamble
		case gmii.SFD:
			p.state = rxPayload
			p.sfdTs = p.clk.Now()
		default:
			p.badSOF = true
			p.state = rxPayload
			p.sfdTs = p.clk.Now()
			p.cur = append(p.cur, sym.Data)
		}

	case rxPreamble:
		p.lineErr = p.lineErr || sym.Err
		switch sym.Data {
		case gmii.PreambleByte:
		case gmii.SFD:
			p.state = rxPayload
			p.sfdTs = p.clk.Now()
		default:
			p.badSOF = true
			p.state = rxPayload
			p.sfdTs = p.clk.Now()
			p.cur = append(p.cur, sym.Data)
		}

	case rxPayload:
		p.lineErr = p.lineErr || sym.Err
		p.cur = append(p.cur, sym.Data)
	}
}

// finishFrame runs at the frame's end delimiter: FCS check, classification,
// pause processing and host delivery.
func (p *RxPath) finishFrame() {
	p.state = rxIdle
	raw := p.cur

	kind := core.ErrNone
	var payload []byte
	fcsOK := false
	switch {
	case p.badSOF || len(raw) <= gmii.FCSLen:
		kind = core.ErrFraming
		payload = append([]byte(nil), raw...)
	default:
		fcsOK = gmii.CheckFCS(raw)
		payload = append([]byte(nil), raw[:len(raw)-gmii.FCSLen]...)
		switch {
		case p.lineErr:
			kind = core.ErrLine
		case !fcsOK:
			kind = core.ErrFCS
		case len(raw) < p.minFrame:
			kind = core.ErrUndersize
		}
	}

	frame := core.HostFrame{
		Data:      payload,
		Err:       kind != core.ErrNone,
		Timestamp: p.sfdTs,
	}

	res := p.classifier.Classify(payload)
	if res.Control() {
		mech := res.Kind.String()
		metrics.PauseFramesTotal.WithLabelValues("rx", mech).Inc()
		// Only intact control frames drive the state machine.
		if !frame.Err {
			p.pauseRx.OnControl(res)
		}
		if !p.classifier.Forward() && !frame.Err {
			// Delivered for accounting, tagged for downstream drop.
			frame.Err = true
			kind = core.ErrControlDrop
		}
		log.GetLogger().WithFields(map[string]interface{}{
			"mechanism": mech,
			"quanta":    res.Quanta,
			"classes":   res.ClassEnable,
		}).Debug("control frame received")
	}

	metrics.FramesTotal.WithLabelValues("rx").Inc()
	if kind != core.ErrNone {
		metrics.FrameErrorsTotal.WithLabelValues("rx", kind.String()).Inc()
	}

	if len(p.out) >= p.depth {
		metrics.FrameDropsTotal.WithLabelValues("rx").Inc()
		log.GetLogger().WithField("len", len(frame.Data)).
			Warn("host queue full, rx frame dropped")
		return
	}
	p.out = append(p.out, frame)
}

// Recv pops the oldest frame delivered to the host side.
func (p *RxPath) Recv() (core.HostFrame, bool) {
	if len(p.out) == 0 {
		return core.HostFrame{}, false
	}
	f := p.out[0]
	p.out = p.out[1:]
	return f, true
}

// PendingFrames returns the number of undelivered host frames.
func (p *RxPath) PendingFrames() int {
	return len(p.out)
}

// Pause exposes the receiver state machine (admission gating, peer-facing
// request outputs).
func (p *RxPath) Pause() *pause.Receiver {
	return p.pauseRx
}
