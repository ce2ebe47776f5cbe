// Package mac assembles the 1G Ethernet MAC behavioral model: the receive
// and transmit datapaths, the clock-gating domains, the timestamp clocks and
// the flow-control state machines.
//
// The model is synchronous and edge-driven. There are exactly two timing
// domains, RX and TX, each advanced one clock edge at a time by the caller;
// per-domain state moves only on active edges as decided by the domain's
// enable generator. Within a domain everything is totally ordered; across
// domains the only shared state is the pause receiver, written by RX and
// read by TX, and the immutable configuration.
package mac

import (
	"github.com/ethlab/mac1g/internal/clock"
	"github.com/ethlab/mac1g/internal/core"
	"github.com/ethlab/mac1g/internal/gmii"
	"github.com/ethlab/mac1g/internal/mcf"
	"github.com/ethlab/mac1g/internal/pause"
	"github.com/ethlab/mac1g/internal/ptp"
)

// Config is the MAC configuration surface. Loaded before operation,
// immutable during a run; validation happens in the config package.
type Config struct {
	// MinFrameLength is the minimum frame length including FCS.
	MinFrameLength int
	// PaddingEnable zero-pads short TX payloads up to the minimum.
	PaddingEnable bool
	// IFG is the inter-frame gap in octet edges.
	IFG int

	// PeriodNs is the timestamp increment per active edge (8 ns at 1G).
	PeriodNs uint64
	// TimestampDepth bounds the TX timestamp side-channel table.
	TimestampDepth int
	// HostQueueDepth bounds the per-direction host frame queues.
	HostQueueDepth int

	// MCF is the ingress control-frame recognition configuration.
	MCF mcf.RxConfig
	// RxPause selects which mechanisms the receive state machine processes.
	RxPause pause.RxConfig
	// TxLFC and TxPFC configure pause frame generation.
	TxLFC pause.LFCGenConfig
	TxPFC pause.PFCGenConfig
}

// DefaultHostQueueDepth bounds host-facing queues when the config leaves
// them zero.
const DefaultHostQueueDepth = 64

func (c *Config) applyDefaults() {
	if c.MinFrameLength == 0 {
		c.MinFrameLength = gmii.MinFrameLen
	}
	if c.IFG == 0 {
		c.IFG = gmii.DefaultIFG
	}
	if c.HostQueueDepth == 0 {
		c.HostQueueDepth = DefaultHostQueueDepth
	}
}

// MAC is a single endpoint's TX/RX behavior plus its flow-control and
// timestamping logic.
type MAC struct {
	cfg Config

	rxDomain *clock.Domain
	txDomain *clock.Domain

	rx *RxPath
	tx *TxPath
}

// New builds a MAC from cfg. The enable generators gate the RX and TX
// domains; nil means always active.
func New(cfg Config, rxEnable, txEnable clock.Enable) *MAC {
	cfg.applyDefaults()

	pauseRx := pause.NewReceiver(cfg.RxPause)
	m := &MAC{
		cfg:      cfg,
		rxDomain: clock.NewDomain("rx", rxEnable),
		txDomain: clock.NewDomain("tx", txEnable),
		rx:       newRxPath(cfg, ptp.NewClock(cfg.PeriodNs), pauseRx),
		tx:       newTxPath(cfg, ptp.NewClock(cfg.PeriodNs), pauseRx),
	}
	return m
}

// Rx exposes the receive datapath.
func (m *MAC) Rx() *RxPath { return m.rx }

// Tx exposes the transmit datapath.
func (m *MAC) Tx() *TxPath { return m.tx }

// RxDomain exposes the RX timing domain.
func (m *MAC) RxDomain() *clock.Domain { return m.rxDomain }

// TxDomain exposes the TX timing domain.
func (m *MAC) TxDomain() *clock.Domain { return m.txDomain }

// Config returns the loaded configuration.
func (m *MAC) Config() Config { return m.cfg }

// StepRx advances the RX domain by one clock edge. On an active edge one
// symbol is pulled from next and processed; on a gated edge nothing moves.
// Returns whether the edge was active.
func (m *MAC) StepRx(next func() gmii.Symbol) bool {
	if !m.rxDomain.Step() {
		return false
	}
	m.rx.Tick(next())
	return true
}

// StepTx advances the TX domain by one clock edge. On an active edge the
// datapath produces one symbol, handed to emit; on a gated edge the line
// holds and emit is not called. Returns whether the edge was active.
func (m *MAC) StepTx(emit func(gmii.Symbol)) (bool, error) {
	if !m.txDomain.Step() {
		return false, nil
	}
	sym, err := m.tx.Tick()
	if err != nil {
		return true, err
	}
	emit(sym)
	return true, nil
}

// Submit queues a host frame on the transmit side.
func (m *MAC) Submit(f core.HostFrame) error {
	return m.tx.Submit(f)
}

// Recv pops the oldest frame delivered to the host on the receive side.
func (m *MAC) Recv() (core.HostFrame, bool) {
	return m.rx.Recv()
}
