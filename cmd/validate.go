package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ethlab/mac1g/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFile)
		if err != nil {
			return err
		}
		if _, err := cfg.Build(); err != nil {
			return fmt.Errorf("config %s: %w", configFile, err)
		}
		fmt.Printf("config %s is valid\n", configFile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
