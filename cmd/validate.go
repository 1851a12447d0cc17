package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"firestige.xyz/pktforge/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file without running anything.

Environment overrides (PKTFORGE_*) are applied before validation.

Examples:
  pktforge validate -f /etc/pktforge/config.yml`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(validateConfigFile, cmd.OutOrStdout()); err != nil {
			exitWithError("invalid configuration", err)
		}
	},
}

var validateConfigFile string

func init() {
	validateCmd.Flags().StringVarP(&validateConfigFile, "file", "f", "",
		"configuration file to validate (required)")
	validateCmd.MarkFlagRequired("file")
}

func runValidate(path string, w io.Writer) error {
	c, err := config.Load(path)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "VALID: log level %s, %d appender(s); build %s:%d -> %s:%d; decode %s as %s\n",
		c.Log.Level, len(c.Log.Appenders),
		c.Build.SrcIP, c.Build.SrcPort, c.Build.DstIP, c.Build.DstPort,
		c.Decode.LinkType, c.Decode.Output,
	)
	return nil
}
