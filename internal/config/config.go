// Package config handles configuration loading using viper.
package config

import (
	"fmt"
	"net"

	"github.com/ethlab/mac1g/internal/log"
	"github.com/ethlab/mac1g/internal/mac"
	"github.com/ethlab/mac1g/internal/mcf"
	"github.com/ethlab/mac1g/internal/pause"
)

// Config is the top-level configuration file structure.
type Config struct {
	MAC     MACConfig        `mapstructure:"mac"`
	Log     log.LoggerConfig `mapstructure:"log"`
	Metrics MetricsConfig    `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus exposition endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// MACConfig is the MAC configuration surface (§ addressing, opcodes,
// quanta, refresh, framing parameters). Loaded once before operation.
type MACConfig struct {
	MinFrameLength int    `mapstructure:"min_frame_length"`
	PaddingEnable  bool   `mapstructure:"padding_enable"`
	IFG            int    `mapstructure:"ifg"`
	PeriodNs       uint64 `mapstructure:"period_ns"`
	TimestampDepth int    `mapstructure:"timestamp_depth"`
	HostQueueDepth int    `mapstructure:"host_queue_depth"`

	MCF   MCFRxConfig  `mapstructure:"mcf_rx"`
	RxLFC RxPauseBlock `mapstructure:"rx_lfc"`
	RxPFC RxPauseBlock `mapstructure:"rx_pfc"`
	TxLFC TxLFCBlock   `mapstructure:"tx_lfc"`
	TxPFC TxPFCBlock   `mapstructure:"tx_pfc"`
}

// MCFRxConfig configures ingress control-frame recognition.
type MCFRxConfig struct {
	Enable        bool   `mapstructure:"enable"`
	Forward       bool   `mapstructure:"forward"`
	DstMcast      string `mapstructure:"eth_dst_mcast"`
	CheckDstMcast bool   `mapstructure:"check_eth_dst_mcast"`
	DstUcast      string `mapstructure:"eth_dst_ucast"`
	CheckDstUcast bool   `mapstructure:"check_eth_dst_ucast"`
	Src           string `mapstructure:"eth_src"`
	CheckSrc      bool   `mapstructure:"check_eth_src"`
	EtherType     uint16 `mapstructure:"eth_type"`
	OpcodeLFC     uint16 `mapstructure:"opcode_lfc"`
	CheckLFC      bool   `mapstructure:"check_opcode_lfc"`
	OpcodePFC     uint16 `mapstructure:"opcode_pfc"`
	CheckPFC      bool   `mapstructure:"check_opcode_pfc"`
}

// RxPauseBlock enables processing of one received pause mechanism.
type RxPauseBlock struct {
	Enable bool `mapstructure:"enable"`
}

// TxLFCBlock configures 802.3x pause frame generation.
type TxLFCBlock struct {
	Enable    bool   `mapstructure:"enable"`
	Dst       string `mapstructure:"eth_dst"`
	Src       string `mapstructure:"eth_src"`
	EtherType uint16 `mapstructure:"eth_type"`
	Opcode    uint16 `mapstructure:"opcode"`
	Quanta    uint16 `mapstructure:"quanta"`
	Refresh   uint16 `mapstructure:"refresh"`
}

// TxPFCBlock configures 802.1Qbb pause frame generation.
type TxPFCBlock struct {
	Enable    bool      `mapstructure:"enable"`
	Dst       string    `mapstructure:"eth_dst"`
	Src       string    `mapstructure:"eth_src"`
	EtherType uint16    `mapstructure:"eth_type"`
	Opcode    uint16    `mapstructure:"opcode"`
	Quanta    [8]uint16 `mapstructure:"quanta"`
	Refresh   [8]uint16 `mapstructure:"refresh"`
}

// Validate rejects contradictory settings at load time; nothing here is
// checked again at runtime.
func (c *Config) Validate() error {
	m := &c.MAC
	if m.MinFrameLength < 64 || m.MinFrameLength > 1518 {
		return fmt.Errorf("mac.min_frame_length %d out of range [64, 1518]", m.MinFrameLength)
	}
	if m.IFG < 1 {
		return fmt.Errorf("mac.ifg must be at least 1, got %d", m.IFG)
	}
	if m.PeriodNs == 0 {
		return fmt.Errorf("mac.period_ns must be nonzero")
	}
	if m.TimestampDepth < 0 || m.HostQueueDepth < 0 {
		return fmt.Errorf("queue depths must not be negative")
	}

	if m.MCF.Enable {
		if m.MCF.EtherType == 0 {
			return fmt.Errorf("mac.mcf_rx.eth_type required when recognition is enabled")
		}
		if !m.MCF.CheckLFC && !m.MCF.CheckPFC {
			return fmt.Errorf("mac.mcf_rx enabled but neither opcode check is on")
		}
		if m.MCF.CheckDstMcast {
			if _, err := net.ParseMAC(m.MCF.DstMcast); err != nil {
				return fmt.Errorf("mac.mcf_rx.eth_dst_mcast: %w", err)
			}
		}
		if m.MCF.CheckDstUcast {
			if _, err := net.ParseMAC(m.MCF.DstUcast); err != nil {
				return fmt.Errorf("mac.mcf_rx.eth_dst_ucast: %w", err)
			}
		}
		if m.MCF.CheckSrc {
			if _, err := net.ParseMAC(m.MCF.Src); err != nil {
				return fmt.Errorf("mac.mcf_rx.eth_src: %w", err)
			}
		}
	}
	if (c.MAC.RxLFC.Enable && !m.MCF.Enable) || (c.MAC.RxPFC.Enable && !m.MCF.Enable) {
		return fmt.Errorf("rx pause processing requires mac.mcf_rx.enable")
	}

	if m.TxLFC.Enable {
		if err := validateTxAddressing("tx_lfc", m.TxLFC.Dst, m.TxLFC.Src, m.TxLFC.EtherType); err != nil {
			return err
		}
		if m.TxLFC.Refresh > 0 && m.TxLFC.Refresh >= m.TxLFC.Quanta {
			return fmt.Errorf("mac.tx_lfc.refresh %d must be below quanta %d", m.TxLFC.Refresh, m.TxLFC.Quanta)
		}
	}
	if m.TxPFC.Enable {
		if err := validateTxAddressing("tx_pfc", m.TxPFC.Dst, m.TxPFC.Src, m.TxPFC.EtherType); err != nil {
			return err
		}
		for i := range m.TxPFC.Quanta {
			if m.TxPFC.Refresh[i] > 0 && m.TxPFC.Refresh[i] >= m.TxPFC.Quanta[i] {
				return fmt.Errorf("mac.tx_pfc class %d: refresh %d must be below quanta %d",
					i, m.TxPFC.Refresh[i], m.TxPFC.Quanta[i])
			}
		}
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr required when metrics.enabled")
	}
	return nil
}

func validateTxAddressing(block, dst, src string, etherType uint16) error {
	if _, err := net.ParseMAC(dst); err != nil {
		return fmt.Errorf("mac.%s.eth_dst: %w", block, err)
	}
	if _, err := net.ParseMAC(src); err != nil {
		return fmt.Errorf("mac.%s.eth_src: %w", block, err)
	}
	if etherType == 0 {
		return fmt.Errorf("mac.%s.eth_type required", block)
	}
	return nil
}

// Build translates the validated file configuration into the MAC's runtime
// configuration.
func (c *Config) Build() (mac.Config, error) {
	m := &c.MAC
	out := mac.Config{
		MinFrameLength: m.MinFrameLength,
		PaddingEnable:  m.PaddingEnable,
		IFG:            m.IFG,
		PeriodNs:       m.PeriodNs,
		TimestampDepth: m.TimestampDepth,
		HostQueueDepth: m.HostQueueDepth,
		RxPause: pause.RxConfig{
			LFCEnable: m.RxLFC.Enable,
			PFCEnable: m.RxPFC.Enable,
		},
	}

	out.MCF = mcf.RxConfig{
		Enable:         m.MCF.Enable,
		Forward:        m.MCF.Forward,
		CheckDstMcast:  m.MCF.CheckDstMcast,
		CheckDstUcast:  m.MCF.CheckDstUcast,
		CheckSrc:       m.MCF.CheckSrc,
		EtherType:      m.MCF.EtherType,
		OpcodeLFC:      m.MCF.OpcodeLFC,
		CheckOpcodeLFC: m.MCF.CheckLFC,
		OpcodePFC:      m.MCF.OpcodePFC,
		CheckOpcodePFC: m.MCF.CheckPFC,
	}
	var err error
	if m.MCF.CheckDstMcast {
		if out.MCF.DstMcast, err = net.ParseMAC(m.MCF.DstMcast); err != nil {
			return mac.Config{}, err
		}
	}
	if m.MCF.CheckDstUcast {
		if out.MCF.DstUcast, err = net.ParseMAC(m.MCF.DstUcast); err != nil {
			return mac.Config{}, err
		}
	}
	if m.MCF.CheckSrc {
		if out.MCF.Src, err = net.ParseMAC(m.MCF.Src); err != nil {
			return mac.Config{}, err
		}
	}

	if m.TxLFC.Enable {
		params, err := txParams(m.TxLFC.Dst, m.TxLFC.Src, m.TxLFC.EtherType, m.TxLFC.Opcode)
		if err != nil {
			return mac.Config{}, err
		}
		out.TxLFC = pause.LFCGenConfig{
			Params:  params,
			Enable:  true,
			Quanta:  m.TxLFC.Quanta,
			Refresh: m.TxLFC.Refresh,
		}
	}
	if m.TxPFC.Enable {
		params, err := txParams(m.TxPFC.Dst, m.TxPFC.Src, m.TxPFC.EtherType, m.TxPFC.Opcode)
		if err != nil {
			return mac.Config{}, err
		}
		out.TxPFC = pause.PFCGenConfig{
			Params:  params,
			Enable:  true,
			Quanta:  m.TxPFC.Quanta,
			Refresh: m.TxPFC.Refresh,
		}
	}
	return out, nil
}

func txParams(dst, src string, etherType, opcode uint16) (mcf.TxParams, error) {
	d, err := net.ParseMAC(dst)
	if err != nil {
		return mcf.TxParams{}, err
	}
	s, err := net.ParseMAC(src)
	if err != nil {
		return mcf.TxParams{}, err
	}
	return mcf.TxParams{Dst: d, Src: s, EtherType: etherType, Opcode: opcode}, nil
}
