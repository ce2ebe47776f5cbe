// Package scenario builds a MAC from configuration and drives it edge by
// edge: line-side frame injection, host-side frame submission, pause-request
// stimulus windows and clock-gating patterns, with the line-side output
// optionally captured to a pcap file.
package scenario

import (
	"fmt"
	"net"

	"github.com/ethlab/mac1g/internal/clock"
	"github.com/ethlab/mac1g/internal/core"
	"github.com/ethlab/mac1g/internal/gmii"
	"github.com/ethlab/mac1g/internal/log"
	"github.com/ethlab/mac1g/internal/mac"
	"github.com/ethlab/mac1g/internal/ptp"
)

// FrameSpec injects count frames of the given length on one side of the MAC.
// Direction "rx" queues them on the line source, "tx" submits them on the
// host side.
type FrameSpec struct {
	Direction string `yaml:"direction"`
	Dst       string `yaml:"dst"`
	Src       string `yaml:"src"`
	EthType   uint16 `yaml:"eth_type"`
	Length    int    `yaml:"length"`
	Count     int    `yaml:"count"`
	Class     uint8  `yaml:"class"`
	Timestamp bool   `yaml:"timestamp"`
}

// Window asserts a pause-request input over a half-open edge interval of the
// TX domain.
type Window struct {
	From    uint64 `yaml:"from"`
	To      uint64 `yaml:"to"`
	Classes uint8  `yaml:"classes"` // PFC only; ignored for LFC windows
}

// maxFlushEdges caps the post-run TX drain.
const maxFlushEdges = 8192

// Scenario is one deterministic run.
type Scenario struct {
	Edges         uint64       `yaml:"edges"`
	RxEnableCycle []int        `yaml:"rx_enable_cycle"`
	TxEnableCycle []int        `yaml:"tx_enable_cycle"`
	Frames        []FrameSpec  `yaml:"frames"`
	LFCRequest    []Window     `yaml:"lfc_request"`
	PFCRequest    []Window     `yaml:"pfc_request"`
}

// Result collects everything observable from one run.
type Result struct {
	// HostFrames are the frames delivered on the host-facing RX output.
	HostFrames []core.HostFrame
	// LineFrames are the frames the MAC transmitted, reassembled from the
	// line.
	LineFrames []*gmii.RxFrame
	// TxTimestamps is the drained timestamp side channel.
	TxTimestamps []ptp.TxTimestamp

	RxActiveEdges uint64
	TxActiveEdges uint64
}

// Run executes the scenario against a MAC built from cfg.
func Run(cfg mac.Config, sc *Scenario) (*Result, error) {
	logger := log.GetLogger().WithField("edges", sc.Edges)
	logger.Info("scenario starting")

	m := mac.New(cfg, enable(sc.RxEnableCycle), enable(sc.TxEnableCycle))
	m.Rx().Pause().SetEnable(true, 0xFF)
	m.Tx().SetLFCPauseEnable(true)

	source := gmii.NewSource(cfg.IFG)
	sink := gmii.NewSink()

	var pendingTx []core.HostFrame
	for _, fs := range sc.Frames {
		frames, err := buildFrames(fs)
		if err != nil {
			return nil, err
		}
		for _, f := range frames {
			switch fs.Direction {
			case "rx":
				source.Send(gmii.NewFrame(f.Data))
			case "tx":
				pendingTx = append(pendingTx, f)
			default:
				return nil, fmt.Errorf("scenario: unknown direction %q", fs.Direction)
			}
		}
	}

	res := &Result{}
	for i := uint64(0); i < sc.Edges; i++ {
		m.Tx().SetPauseRequest(inWindow(sc.LFCRequest, i), pfcVector(sc.PFCRequest, i))

		// Keep the TX submission queue topped up; the bounded queue applies
		// the backpressure.
		for len(pendingTx) > 0 {
			if err := m.Submit(pendingTx[0]); err != nil {
				break
			}
			pendingTx = pendingTx[1:]
		}

		m.StepRx(source.Next)
		if _, err := m.StepTx(sink.Push); err != nil {
			return nil, fmt.Errorf("scenario: edge %d: %w", i, err)
		}

		for {
			f, ok := m.Recv()
			if !ok {
				break
			}
			res.HostFrames = append(res.HostFrames, f)
		}
		for {
			ts, ok := m.Tx().Timestamps().Pop()
			if !ok {
				break
			}
			res.TxTimestamps = append(res.TxTimestamps, ts)
		}
	}

	// Flush the TX path so a tight edge budget does not truncate the last
	// frame mid-line. Bounded: a still-asserted pause request keeps the path
	// busy forever.
	for extra := 0; m.Tx().Busy() && extra < maxFlushEdges; extra++ {
		if _, err := m.StepTx(sink.Push); err != nil {
			return nil, fmt.Errorf("scenario: flush: %w", err)
		}
		for {
			ts, ok := m.Tx().Timestamps().Pop()
			if !ok {
				break
			}
			res.TxTimestamps = append(res.TxTimestamps, ts)
		}
	}

	for {
		f, ok := sink.Recv()
		if !ok {
			break
		}
		res.LineFrames = append(res.LineFrames, f)
	}
	res.RxActiveEdges = m.RxDomain().ActiveEdges()
	res.TxActiveEdges = m.TxDomain().ActiveEdges()

	logger.WithFields(map[string]interface{}{
		"host_frames": len(res.HostFrames),
		"line_frames": len(res.LineFrames),
		"timestamps":  len(res.TxTimestamps),
		"tx_backlog":  m.Tx().QueuedFrames(),
		"rx_backlog":  m.Rx().PendingFrames(),
	}).Info("scenario finished")
	return res, nil
}

func enable(cycle []int) clock.Enable {
	if len(cycle) == 0 {
		return clock.AlwaysOn()
	}
	vals := make([]bool, len(cycle))
	for i, v := range cycle {
		vals[i] = v != 0
	}
	return clock.Cycle(vals...)
}

func inWindow(ws []Window, edge uint64) bool {
	for _, w := range ws {
		if edge >= w.From && edge < w.To {
			return true
		}
	}
	return false
}

func pfcVector(ws []Window, edge uint64) uint8 {
	var v uint8
	for _, w := range ws {
		if edge >= w.From && edge < w.To {
			v |= w.Classes
		}
	}
	return v
}

// buildFrames expands a FrameSpec into host frame records with an
// incrementing payload.
func buildFrames(fs FrameSpec) ([]core.HostFrame, error) {
	dst, err := net.ParseMAC(fs.Dst)
	if err != nil {
		return nil, fmt.Errorf("scenario: frame dst: %w", err)
	}
	src, err := net.ParseMAC(fs.Src)
	if err != nil {
		return nil, fmt.Errorf("scenario: frame src: %w", err)
	}
	if fs.Length < core.EthHeaderLen {
		return nil, fmt.Errorf("scenario: frame length %d below header size", fs.Length)
	}

	count := fs.Count
	if count == 0 {
		count = 1
	}
	out := make([]core.HostFrame, 0, count)
	for k := 0; k < count; k++ {
		data := make([]byte, 0, fs.Length)
		data = append(data, dst...)
		data = append(data, src...)
		data = append(data, byte(fs.EthType>>8), byte(fs.EthType))
		for i := 0; len(data) < fs.Length; i++ {
			data = append(data, byte(i))
		}
		out = append(out, core.HostFrame{
			Data:          data,
			Class:         fs.Class,
			WantTimestamp: fs.Timestamp,
			Tag:           uint16(k),
		})
	}
	return out, nil
}
