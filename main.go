// Package main is the entry point for the pktforge datagram toolkit.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/pktforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
