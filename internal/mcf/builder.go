package mcf

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// TxParams is the addressing used when synthesizing a control frame.
// Loaded before operation, read-only while the MAC runs.
type TxParams struct {
	Dst       net.HardwareAddr
	Src       net.HardwareAddr
	EtherType uint16
	Opcode    uint16
}

// BuildLFC synthesizes an 802.3x pause frame with the given quanta.
// The result is dst through payload, unpadded; the TX path applies the
// configured padding and FCS like for any other frame.
func BuildLFC(p TxParams, quanta uint16) ([]byte, error) {
	body := make([]byte, 4)
	binary.BigEndian.PutUint16(body, p.Opcode)
	binary.BigEndian.PutUint16(body[2:], quanta)
	return serialize(p, body)
}

// BuildPFC synthesizes an 802.1Qbb pause frame: priority-enable vector
// followed by the eight per-class quanta, network byte order.
func BuildPFC(p TxParams, enable uint8, quanta [8]uint16) ([]byte, error) {
	body := make([]byte, 4+2*8)
	binary.BigEndian.PutUint16(body, p.Opcode)
	body[3] = enable
	for i, q := range quanta {
		if enable&(1<<i) == 0 {
			q = 0
		}
		binary.BigEndian.PutUint16(body[4+2*i:], q)
	}
	return serialize(p, body)
}

func serialize(p TxParams, body []byte) ([]byte, error) {
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{},
		&layers.Ethernet{
			DstMAC:       p.Dst,
			SrcMAC:       p.Src,
			EthernetType: layers.EthernetType(p.EtherType),
		},
		gopacket.Payload(body),
	)
	if err != nil {
		return nil, fmt.Errorf("mcf: serialize control frame: %w", err)
	}
	return buf.Bytes(), nil
}
