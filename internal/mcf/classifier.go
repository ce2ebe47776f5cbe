package mcf

import (
	"bytes"
	"encoding/binary"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// RxConfig is the ingress recognition configuration. Loaded before operation,
// read-only while the MAC runs.
type RxConfig struct {
	// Enable gates recognition entirely; when false every frame is data.
	Enable bool

	// Forward delivers recognized control frames to the host output with a
	// clear error flag. When false they are still delivered but with the
	// error flag asserted so the downstream drops them.
	Forward bool

	DstMcast      net.HardwareAddr
	CheckDstMcast bool
	DstUcast      net.HardwareAddr
	CheckDstUcast bool
	Src           net.HardwareAddr
	CheckSrc      bool

	EtherType uint16

	OpcodeLFC      uint16
	CheckOpcodeLFC bool
	OpcodePFC      uint16
	CheckOpcodePFC bool
}

// Classifier inspects completed ingress frames. It is owned by the RX domain
// and holds no per-frame state; classification happens once per frame at the
// frame's end delimiter.
type Classifier struct {
	cfg RxConfig
}

// NewClassifier builds a classifier for cfg.
func NewClassifier(cfg RxConfig) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the recognition configuration.
func (c *Classifier) Config() RxConfig {
	return c.cfg
}

// Forward reports the configured forwarding policy for recognized frames.
func (c *Classifier) Forward() bool {
	return c.cfg.Forward
}

// Classify inspects a frame (dst through payload, FCS already stripped).
// Frames too short for an Ethernet header are data by definition.
func (c *Classifier) Classify(data []byte) Result {
	if !c.cfg.Enable || len(data) < 16 {
		return Result{Kind: KindData}
	}

	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.NoCopy)
	ethLayer := pkt.Layer(layers.LayerTypeEthernet)
	if ethLayer == nil {
		return Result{Kind: KindData}
	}
	eth := ethLayer.(*layers.Ethernet)

	if uint16(eth.EthernetType) != c.cfg.EtherType {
		return Result{Kind: KindData}
	}
	if !c.dstOK(eth.DstMAC) || !c.srcOK(eth.SrcMAC) {
		return Result{Kind: KindData}
	}

	body := eth.Payload
	if len(body) < 2 {
		return Result{Kind: KindUnknownOpcode}
	}
	opcode := binary.BigEndian.Uint16(body)

	switch {
	case c.cfg.CheckOpcodeLFC && opcode == c.cfg.OpcodeLFC:
		r := Result{Kind: KindLFC}
		if len(body) >= 4 {
			r.Quanta = binary.BigEndian.Uint16(body[2:])
		}
		return r

	case c.cfg.CheckOpcodePFC && opcode == c.cfg.OpcodePFC:
		r := Result{Kind: KindPFC}
		if len(body) >= 4 {
			// Only the low byte of the priority-enable vector is defined.
			r.ClassEnable = body[3]
		}
		for i := 0; i < 8 && len(body) >= 4+2*(i+1); i++ {
			r.ClassQuanta[i] = binary.BigEndian.Uint16(body[4+2*i:])
		}
		return r
	}

	return Result{Kind: KindUnknownOpcode}
}

func (c *Classifier) dstOK(dst net.HardwareAddr) bool {
	if !c.cfg.CheckDstMcast && !c.cfg.CheckDstUcast {
		return true
	}
	if c.cfg.CheckDstMcast && bytes.Equal(dst, c.cfg.DstMcast) {
		return true
	}
	if c.cfg.CheckDstUcast && bytes.Equal(dst, c.cfg.DstUcast) {
		return true
	}
	return false
}

func (c *Classifier) srcOK(src net.HardwareAddr) bool {
	return !c.cfg.CheckSrc || bytes.Equal(src, c.cfg.Src)
}
