// Package main is the entry point for the mac1g Ethernet MAC model.
package main

import (
	"fmt"
	"os"

	"github.com/ethlab/mac1g/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
