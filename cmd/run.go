package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethlab/mac1g/internal/config"
	"github.com/ethlab/mac1g/internal/log"
	"github.com/ethlab/mac1g/internal/metrics"
	"github.com/ethlab/mac1g/internal/scenario"
)

var (
	scenarioFile string
	pcapFile     string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario against the MAC model",
	Long: `Run builds a MAC from the configuration file, drives it with the
stimulus described in the scenario file, and reports what came out: frames
delivered to the host side, frames transmitted on the line, and the egress
timestamp side channel. With --pcap, the transmitted line frames are written
to a capture file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if err := log.Init(&cfg.Log); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		if cfg.Metrics.Enabled {
			srv := metrics.NewServer(cfg.Metrics.Addr, "/metrics")
			if err := srv.Start(cmd.Context()); err != nil {
				return err
			}
			defer srv.Stop(context.Background())
		}

		sc, err := scenario.Load(scenarioFile)
		if err != nil {
			return err
		}
		macCfg, err := cfg.Build()
		if err != nil {
			return err
		}

		res, err := scenario.Run(macCfg, sc)
		if err != nil {
			return err
		}

		fmt.Printf("host frames:   %d\n", len(res.HostFrames))
		fmt.Printf("line frames:   %d\n", len(res.LineFrames))
		fmt.Printf("tx timestamps: %d\n", len(res.TxTimestamps))
		fmt.Printf("active edges:  rx=%d tx=%d\n", res.RxActiveEdges, res.TxActiveEdges)

		if pcapFile != "" {
			if err := scenario.WritePcap(pcapFile, res.LineFrames, macCfg.PeriodNs); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", pcapFile)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().StringVarP(&scenarioFile, "scenario", "s", "scenario.yml",
		"scenario file path")
	runCmd.Flags().StringVar(&pcapFile, "pcap", "",
		"write transmitted line frames to a pcap file")
	rootCmd.AddCommand(runCmd)
}
