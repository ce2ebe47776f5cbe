package mac

import (
	"bytes"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethlab/mac1g/internal/clock"
	"github.com/ethlab/mac1g/internal/core"
	"github.com/ethlab/mac1g/internal/gmii"
	"github.com/ethlab/mac1g/internal/mcf"
	"github.com/ethlab/mac1g/internal/pause"
	"github.com/ethlab/mac1g/internal/ptp"
)

var (
	testDst = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
	testSrc = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
)

// testFrame builds dst+src+type followed by an incrementing payload, length
// octets total.
func testFrame(length int) []byte {
	data := make([]byte, 0, length)
	data = append(data, testDst...)
	data = append(data, testSrc...)
	data = append(data, 0x80, 0x00)
	for i := 0; len(data) < length; i++ {
		data = append(data, byte(i))
	}
	return data
}

func flowControlConfig() Config {
	return Config{
		MCF: mcf.RxConfig{
			Enable:         true,
			DstMcast:       mcf.PauseMulticast,
			CheckDstMcast:  true,
			EtherType:      mcf.EtherTypeFlowControl,
			OpcodeLFC:      mcf.OpcodeLFC,
			CheckOpcodeLFC: true,
			OpcodePFC:      mcf.OpcodePFC,
			CheckOpcodePFC: true,
		},
		RxPause: pause.RxConfig{LFCEnable: true, PFCEnable: true},
	}
}

// lfcPayload builds a pause frame padded to the minimum payload length, the
// way it arrives on the line.
func lfcPayload(t *testing.T, quanta uint16) []byte {
	t.Helper()
	data, err := mcf.BuildLFC(genParams(mcf.OpcodeLFC), quanta)
	require.NoError(t, err)
	return gmii.Pad(data, 60)
}

func pfcPayload(t *testing.T, enable uint8, quanta [8]uint16) []byte {
	t.Helper()
	data, err := mcf.BuildPFC(genParams(mcf.OpcodePFC), enable, quanta)
	require.NoError(t, err)
	return gmii.Pad(data, 60)
}

func genParams(opcode uint16) mcf.TxParams {
	return mcf.TxParams{
		Dst:       mcf.PauseMulticast,
		Src:       testSrc,
		EtherType: mcf.EtherTypeFlowControl,
		Opcode:    opcode,
	}
}

// step advances both domains one edge, RX first.
func step(t *testing.T, m *MAC, src *gmii.Source, sink *gmii.Sink) {
	t.Helper()
	m.StepRx(src.Next)
	if _, err := m.StepTx(sink.Push); err != nil {
		t.Fatal(err)
	}
}

func TestRxRoundTrip(t *testing.T) {
	m := New(Config{}, nil, nil)
	src := gmii.NewSource(gmii.DefaultIFG)

	payloads := [][]byte{testFrame(60), testFrame(64), testFrame(512), testFrame(1514)}
	sent := make([]*gmii.Frame, len(payloads))
	for i, p := range payloads {
		sent[i] = gmii.NewFrame(p)
		src.Send(sent[i])
	}

	for i := 0; i < 4000; i++ {
		m.StepRx(src.Next)
	}

	for i, p := range payloads {
		f, ok := m.Recv()
		require.True(t, ok, "frame %d not delivered", i)
		assert.Equal(t, p, f.Data, "frame %d payload", i)
		assert.False(t, f.Err, "frame %d error flag", i)

		want := ptp.Timestamp(sent[i].SFDEdge*ptp.DefaultPeriodNs) << ptp.FracBits
		assert.Equal(t, want, f.Timestamp, "frame %d timestamp", i)
	}
	_, ok := m.Recv()
	assert.False(t, ok, "extra frame delivered")
}

func TestRxUndersizeFlagged(t *testing.T) {
	m := New(Config{}, nil, nil)
	src := gmii.NewSource(gmii.DefaultIFG)
	src.Send(gmii.NewFrame(testFrame(59)))

	for i := 0; i < 120; i++ {
		m.StepRx(src.Next)
	}

	f, ok := m.Recv()
	require.True(t, ok)
	assert.True(t, f.Err, "frame below the minimum must be flagged")
	assert.Len(t, f.Data, 59)
}

func TestRxBadFCSFlagged(t *testing.T) {
	m := New(Config{}, nil, nil)
	src := gmii.NewSource(gmii.DefaultIFG)
	bad := gmii.NewFrame(testFrame(60))
	bad.CorruptFCS = true
	src.Send(bad)

	for i := 0; i < 120; i++ {
		m.StepRx(src.Next)
	}

	f, ok := m.Recv()
	require.True(t, ok)
	assert.True(t, f.Err)
}

func TestRxLineErrorFlagged(t *testing.T) {
	m := New(Config{}, nil, nil)
	src := gmii.NewSource(gmii.DefaultIFG)
	tainted := gmii.NewFrame(testFrame(60))
	tainted.ErrAt = 30
	src.Send(tainted)

	for i := 0; i < 120; i++ {
		m.StepRx(src.Next)
	}

	f, ok := m.Recv()
	require.True(t, ok)
	assert.True(t, f.Err, "line error must taint the frame")
	assert.Equal(t, testFrame(60), f.Data, "octets are delivered unaltered")
}

func TestRxGatingInvariance(t *testing.T) {
	// Identical stimulus through a free-running MAC and one active every
	// fourth edge must produce identical frames, timestamps included: the
	// counter only advances on active edges.
	run := func(enable clock.Enable, edges int) []core.HostFrame {
		m := New(Config{}, enable, nil)
		src := gmii.NewSource(gmii.DefaultIFG)
		src.Send(gmii.NewFrame(testFrame(60)))
		src.Send(gmii.NewFrame(testFrame(128)))

		var out []core.HostFrame
		for i := 0; i < edges; i++ {
			m.StepRx(src.Next)
			for {
				f, ok := m.Recv()
				if !ok {
					break
				}
				out = append(out, f)
			}
		}
		return out
	}

	free := run(clock.AlwaysOn(), 400)
	gated := run(clock.Cycle(false, false, false, true), 1600)

	require.Len(t, free, 2)
	require.Len(t, gated, 2)
	for i := range free {
		assert.Equal(t, free[i].Data, gated[i].Data, "frame %d payload", i)
		assert.Equal(t, free[i].Err, gated[i].Err, "frame %d error", i)
		assert.Equal(t, free[i].Timestamp, gated[i].Timestamp, "frame %d timestamp", i)
	}
}

func TestTxRoundTripWithPadding(t *testing.T) {
	m := New(Config{PaddingEnable: true}, nil, nil)
	sink := gmii.NewSink()

	short := testFrame(20)
	require.NoError(t, m.Submit(core.HostFrame{Data: short}))

	for i := 0; i < 120; i++ {
		if _, err := m.StepTx(sink.Push); err != nil {
			t.Fatal(err)
		}
	}

	lf, ok := sink.Recv()
	require.True(t, ok)
	assert.True(t, lf.FCSOk, "transmitted frame must carry a valid FCS")
	require.Len(t, lf.Payload, 60, "padded to the minimum")
	assert.Equal(t, short, lf.Payload[:20])
	assert.Equal(t, make([]byte, 40), lf.Payload[20:], "padding must be zeros")
}

func TestTxPaddingDisabled(t *testing.T) {
	m := New(Config{}, nil, nil)
	sink := gmii.NewSink()

	short := testFrame(20)
	require.NoError(t, m.Submit(core.HostFrame{Data: short}))
	for i := 0; i < 60; i++ {
		m.StepTx(sink.Push)
	}

	lf, ok := sink.Recv()
	require.True(t, ok)
	assert.Equal(t, short, lf.Payload)
	assert.True(t, lf.FCSOk)
}

func TestTxTimestampSideChannel(t *testing.T) {
	m := New(Config{}, nil, nil)
	sink := gmii.NewSink()

	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60), Tag: 5, WantTimestamp: true}))
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60), Tag: 6, WantTimestamp: true}))

	for i := 0; i < 300; i++ {
		if _, err := m.StepTx(sink.Push); err != nil {
			t.Fatal(err)
		}
	}

	lf1, ok := sink.Recv()
	require.True(t, ok)
	lf2, ok := sink.Recv()
	require.True(t, ok)

	ts1, ok := m.Tx().Timestamps().Pop()
	require.True(t, ok, "first timestamp missing")
	ts2, ok := m.Tx().Timestamps().Pop()
	require.True(t, ok, "second timestamp missing")

	assert.Equal(t, uint16(5), ts1.Tag)
	assert.Equal(t, uint16(6), ts2.Tag)
	assert.Equal(t, ptp.Timestamp(lf1.SFDEdge*ptp.DefaultPeriodNs)<<ptp.FracBits, ts1.Timestamp)
	assert.Equal(t, ptp.Timestamp(lf2.SFDEdge*ptp.DefaultPeriodNs)<<ptp.FracBits, ts2.Timestamp)
}

func TestTxTimestampTableFullHoldsFrame(t *testing.T) {
	m := New(Config{TimestampDepth: 1}, nil, nil)
	sink := gmii.NewSink()

	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60), Tag: 1, WantTimestamp: true}))
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60), Tag: 2, WantTimestamp: true}))

	for i := 0; i < 300; i++ {
		m.StepTx(sink.Push)
	}
	assert.Equal(t, 1, sink.Count(), "second frame must wait for the side channel")

	// Draining the channel unblocks it.
	_, ok := m.Tx().Timestamps().Pop()
	require.True(t, ok)
	for i := 0; i < 300; i++ {
		m.StepTx(sink.Push)
	}
	assert.Equal(t, 2, sink.Count())
}

func TestTxBackpressure(t *testing.T) {
	m := New(Config{HostQueueDepth: 2}, nil, nil)
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))
	assert.ErrorIs(t, m.Submit(core.HostFrame{Data: testFrame(60)}), core.ErrBackpressure)
}

func TestTxInterFrameGap(t *testing.T) {
	m := New(Config{IFG: 12}, nil, nil)
	sink := gmii.NewSink()
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))

	for i := 0; i < 300; i++ {
		m.StepTx(sink.Push)
	}
	lf1, _ := sink.Recv()
	lf2, ok := sink.Recv()
	require.True(t, ok)

	// SFD to SFD: frame remainder, the gap, then preamble and SFD again.
	wantDelta := uint64(60 + gmii.FCSLen + 12 + gmii.PreambleLen + 1)
	assert.GreaterOrEqual(t, lf2.SFDEdge-lf1.SFDEdge, wantDelta)
}

func TestReceivedLFCPausesTransmit(t *testing.T) {
	m := New(flowControlConfig(), nil, nil)
	m.Rx().Pause().SetEnable(true, 0xFF)
	m.Tx().SetLFCPauseEnable(true)

	src := gmii.NewSource(gmii.DefaultIFG)
	sink := gmii.NewSink()

	src.Send(gmii.NewFrame(lfcPayload(t, 2)))

	// Let the control frame land before offering data.
	for i := 0; i < 80; i++ {
		step(t, m, src, sink)
	}
	require.True(t, m.Rx().Pause().LFCPaused(), "pause not in effect")

	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))
	for i := 0; i < 400; i++ {
		step(t, m, src, sink)
	}

	lf, ok := sink.Recv()
	require.True(t, ok, "frame never transmitted")
	// 2 quanta hold transmission for 128 edges after frame acceptance.
	assert.GreaterOrEqual(t, lf.SFDEdge, uint64(200), "frame left during the pause")
	assert.False(t, m.Rx().Pause().LFCPaused(), "pause should have expired")

	// The non-forwarded control frame reaches the host tagged for drop.
	hf, ok := m.Recv()
	require.True(t, ok, "control frame not delivered for accounting")
	assert.True(t, hf.Err, "non-forwarded control frame must carry the error flag")
}

func TestReceivedLFCForwardedWhenConfigured(t *testing.T) {
	cfg := flowControlConfig()
	cfg.MCF.Forward = true
	m := New(cfg, nil, nil)
	m.Rx().Pause().SetEnable(true, 0xFF)

	src := gmii.NewSource(gmii.DefaultIFG)
	src.Send(gmii.NewFrame(lfcPayload(t, 2)))
	for i := 0; i < 120; i++ {
		m.StepRx(src.Next)
	}

	require.True(t, m.Rx().Pause().LFCPaused(), "forwarding must not disable processing")
	hf, ok := m.Recv()
	require.True(t, ok)
	assert.False(t, hf.Err, "forwarded control frame is a clean host frame")
}

func TestReceivedPFCIsolatesClasses(t *testing.T) {
	m := New(flowControlConfig(), nil, nil)
	m.Rx().Pause().SetEnable(true, 0xFF)

	src := gmii.NewSource(gmii.DefaultIFG)
	sink := gmii.NewSink()

	var quanta [8]uint16
	quanta[1] = 2
	src.Send(gmii.NewFrame(pfcPayload(t, 1<<1, quanta)))

	for i := 0; i < 80; i++ {
		step(t, m, src, sink)
	}
	require.True(t, m.Rx().Pause().PFCPaused(1), "class 1 not paused")

	pausedClass := testFrame(60)
	otherClass := testFrame(100)
	require.NoError(t, m.Submit(core.HostFrame{Data: pausedClass, Class: 1}))
	require.NoError(t, m.Submit(core.HostFrame{Data: otherClass, Class: 0}))

	for i := 0; i < 600; i++ {
		step(t, m, src, sink)
	}

	lf1, ok := sink.Recv()
	require.True(t, ok, "unpaused class never transmitted")
	lf2, ok := sink.Recv()
	require.True(t, ok, "paused class never released")

	assert.True(t, bytes.Equal(lf1.Payload, otherClass),
		"class 0 must not wait behind the paused class")
	assert.True(t, bytes.Equal(lf2.Payload, pausedClass))
	assert.GreaterOrEqual(t, lf2.SFDEdge, uint64(200), "class 1 left during its pause")
}

func TestExternalPauseGatesData(t *testing.T) {
	m := New(Config{}, nil, nil)
	sink := gmii.NewSink()
	m.Tx().SetExternalPause(true)

	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))
	for i := 0; i < 200; i++ {
		m.StepTx(sink.Push)
	}
	assert.Equal(t, 0, sink.Count(), "data left under external pause")

	m.Tx().SetExternalPause(false)
	for i := 0; i < 200; i++ {
		m.StepTx(sink.Push)
	}
	assert.Equal(t, 1, sink.Count())
}

func TestPauseRequestEmitsControlBeforeData(t *testing.T) {
	cfg := flowControlConfig()
	cfg.PaddingEnable = true
	cfg.TxLFC = pause.LFCGenConfig{
		Params: genParams(mcf.OpcodeLFC),
		Enable: true,
		Quanta: 100,
	}
	m := New(cfg, nil, nil)
	sink := gmii.NewSink()

	data := testFrame(60)
	require.NoError(t, m.Submit(core.HostFrame{Data: data}))
	m.Tx().SetPauseRequest(true, 0)

	for i := 0; i < 200; i++ {
		if _, err := m.StepTx(sink.Push); err != nil {
			t.Fatal(err)
		}
	}
	m.Tx().SetPauseRequest(false, 0)
	for i := 0; i < 200; i++ {
		if _, err := m.StepTx(sink.Push); err != nil {
			t.Fatal(err)
		}
	}

	require.Equal(t, 3, sink.Count(), "expected assert, data, release")

	first, _ := sink.Recv()
	second, _ := sink.Recv()
	third, _ := sink.Recv()

	// Control frame wins the frame-boundary arbitration.
	assert.Equal(t, []byte(mcf.PauseMulticast), first.Payload[0:6])
	assert.Equal(t, byte(0x88), first.Payload[12])
	assert.Equal(t, byte(0x08), first.Payload[13])
	assert.Equal(t, uint16(100), uint16(first.Payload[16])<<8|uint16(first.Payload[17]),
		"assert frame advertises full quanta")
	assert.Len(t, first.Payload, 60, "control frames are padded like any frame")
	assert.True(t, first.FCSOk)

	assert.Equal(t, data, second.Payload)

	assert.Equal(t, byte(0x88), third.Payload[12])
	assert.Equal(t, uint16(0), uint16(third.Payload[16])<<8|uint16(third.Payload[17]),
		"release frame advertises zero quanta")
}

func TestConfigDefaults(t *testing.T) {
	m := New(Config{}, nil, nil)
	cfg := m.Config()
	assert.Equal(t, gmii.MinFrameLen, cfg.MinFrameLength)
	assert.Equal(t, gmii.DefaultIFG, cfg.IFG)
	assert.Equal(t, DefaultHostQueueDepth, cfg.HostQueueDepth)
}

func TestGatedEdgesMoveNothing(t *testing.T) {
	m := New(Config{}, clock.Pattern(), clock.Pattern())
	src := gmii.NewSource(gmii.DefaultIFG)
	sink := gmii.NewSink()
	src.Send(gmii.NewFrame(testFrame(60)))
	require.NoError(t, m.Submit(core.HostFrame{Data: testFrame(60)}))

	for i := 0; i < 100; i++ {
		if m.StepRx(src.Next) {
			t.Fatal("gated RX edge reported active")
		}
		active, err := m.StepTx(sink.Push)
		require.NoError(t, err)
		require.False(t, active)
	}
	assert.Equal(t, 0, sink.Count())
	_, ok := m.Recv()
	assert.False(t, ok)
	assert.Equal(t, uint64(100), m.RxDomain().Edges())
	assert.Equal(t, uint64(0), m.RxDomain().ActiveEdges())
}

func TestLFCEndToEndScenario(t *testing.T) {
	// 32 data frames with a pause frame injected mid-stream on the line,
	// while the external TX pause request is held for two 1000-edge windows.
	cfg := flowControlConfig()
	cfg.PaddingEnable = true
	cfg.TxLFC = pause.LFCGenConfig{
		Params:  genParams(mcf.OpcodeLFC),
		Enable:  true,
		Quanta:  0xFFFF,
		Refresh: 0x7F00,
	}
	m := New(cfg, nil, nil)
	m.Rx().Pause().SetEnable(true, 0xFF)

	src := gmii.NewSource(gmii.DefaultIFG)
	sink := gmii.NewSink()

	data := testFrame(60)
	for i := 0; i < 16; i++ {
		src.Send(gmii.NewFrame(data))
	}
	src.Send(gmii.NewFrame(lfcPayload(t, 100)))
	for i := 0; i < 16; i++ {
		src.Send(gmii.NewFrame(data))
	}

	inWindow := func(i int) bool {
		return (i >= 1000 && i < 2000) || (i >= 3000 && i < 4000)
	}
	var host []core.HostFrame
	for i := 0; i < 6000; i++ {
		m.Tx().SetPauseRequest(inWindow(i), 0)
		step(t, m, src, sink)
		for {
			f, ok := m.Recv()
			if !ok {
				break
			}
			host = append(host, f)
		}
	}

	require.Len(t, host, 33, "32 data frames plus the control frame")
	for i, f := range host {
		if i == 16 {
			assert.True(t, f.Err, "non-forwarded control frame must be flagged")
			continue
		}
		assert.False(t, f.Err, "data frame %d flagged", i)
		assert.Equal(t, data, f.Data, "data frame %d payload", i)
	}

	// Each request window yields one assert and one release; the refresh
	// threshold is never reached within 1000 edges at quanta 0xFFFF.
	var quantas []uint16
	for {
		lf, ok := sink.Recv()
		if !ok {
			break
		}
		require.GreaterOrEqual(t, len(lf.Payload), 18)
		quantas = append(quantas, uint16(lf.Payload[16])<<8|uint16(lf.Payload[17]))
	}
	require.Len(t, quantas, 4, "two windows, assert plus release each")
	assert.Equal(t, []uint16{0xFFFF, 0, 0xFFFF, 0}, quantas)
}

func TestPFCIncrementalRequestScenario(t *testing.T) {
	// Classes 0..i requested incrementally every 500 edges, then cleared.
	cfg := flowControlConfig()
	cfg.PaddingEnable = true
	cfg.TxPFC = pause.PFCGenConfig{
		Params: genParams(mcf.OpcodePFC),
		Enable: true,
		Quanta: [8]uint16{10, 20, 30, 40, 50, 60, 70, 80},
	}
	m := New(cfg, nil, nil)
	sink := gmii.NewSink()

	req := uint8(0)
	for i := 0; i < 5000; i++ {
		if i%500 == 0 {
			if k := i / 500; k <= 7 {
				req = uint8(1<<(k+1)) - 1
			} else {
				req = 0
			}
		}
		m.Tx().SetPauseRequest(false, req)
		if _, err := m.StepTx(sink.Push); err != nil {
			t.Fatal(err)
		}
	}

	count := sink.Count()
	assert.Greater(t, count, 2, "at least the initial asserts")
	assert.LessOrEqual(t, count, 9, "no more than one frame per request step")
	assert.Equal(t, 9, count, "eight ramp steps plus the release")

	// The final frame releases every class.
	var last *gmii.RxFrame
	for {
		lf, ok := sink.Recv()
		if !ok {
			break
		}
		last = lf
	}
	require.NotNil(t, last)
	for i := 0; i < 8; i++ {
		q := uint16(last.Payload[18+2*i])<<8 | uint16(last.Payload[19+2*i])
		assert.Zero(t, q, "class %d quanta in release frame", i)
	}
}
