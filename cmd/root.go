// Package cmd implements CLI commands using cobra framework.
package cmd

import (
	"github.com/spf13/cobra"
)

var configFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mac1g",
	Short: "mac1g - behavioral model of a 1G Ethernet MAC",
	Long: `mac1g models the behavioral contract of a 1-Gigabit Ethernet MAC:
frame transfer between the octet-stream line interface and the packetized
host interface, PTP timestamping of frame boundaries, and link-level flow
control (802.3x pause and 802.1Qbb priority flow control).

Scenarios are described in YAML: frames to inject on either side, pause
request windows, and per-domain clock-gating patterns. The line-side output
can be written to a pcap file for inspection.`,
	Version: "0.1.0",
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yml",
		"config file path")
}
