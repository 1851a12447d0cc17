package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// version is overridden at link time with -ldflags "-X firestige.xyz/pktforge/cmd.version=...".
var version = "0.1.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pktforge version",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "pktforge version %s\n", version)
}
