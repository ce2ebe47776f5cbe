package scenario

import (
	"fmt"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"

	"github.com/ethlab/mac1g/internal/gmii"
	"github.com/ethlab/mac1g/internal/ptp"
)

// WritePcap dumps the line frames of a run to a pcap file, one record per
// transmitted frame. Record timestamps are reconstructed from the frame's
// start-delimiter edge and the configured edge period, relative to an
// arbitrary epoch.
func WritePcap(path string, frames []*gmii.RxFrame, periodNs uint64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("pcap: %w", err)
	}
	defer f.Close()

	w := pcapgo.NewWriterNanos(f)
	if err := w.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		return fmt.Errorf("pcap: file header: %w", err)
	}

	if periodNs == 0 {
		periodNs = ptp.DefaultPeriodNs
	}
	epoch := time.Unix(0, 0)
	for _, lf := range frames {
		ci := gopacket.CaptureInfo{
			Timestamp:     epoch.Add(time.Duration(lf.SFDEdge*periodNs) * time.Nanosecond),
			CaptureLength: len(lf.Payload),
			Length:        len(lf.Payload),
		}
		if err := w.WritePacket(ci, lf.Payload); err != nil {
			return fmt.Errorf("pcap: write packet: %w", err)
		}
	}
	return nil
}
