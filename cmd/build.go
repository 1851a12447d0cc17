package cmd

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/netip"
	"strings"

	"github.com/spf13/cobra"

	"firestige.xyz/pktforge/internal/config"
	"firestige.xyz/pktforge/internal/log"
	"firestige.xyz/pktforge/pkg/layer"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Serialize a UDP datagram",
	Long: `Serialize a UDP datagram and print its summary and bytes.

The checksum is computed over the IPv4 or IPv6 pseudo-header implied by the
addresses; both addresses must belong to the same family. Unset flags fall back
to the build section of the configuration.

Examples:
  pktforge build --src-ip 10.0.0.1 --dst-ip 10.0.0.2 --src-port 53 --dst-port 80
  pktforge build --src-ip fe80::1 --dst-ip fe80::2 --src-port 53 --dst-port 80 --payload hello
  pktforge build --src-port 53 --dst-port 80 --payload-hex deadbeef --header-only`,
	Run: func(cmd *cobra.Command, args []string) {
		applyBuildDefaults(cmd, &buildOpts, cfg.Build)
		if err := runBuild(buildOpts, cmd.OutOrStdout()); err != nil {
			exitWithError("build failed", err)
		}
	},
}

type buildOptions struct {
	SrcIP      string
	DstIP      string
	SrcPort    int
	DstPort    int
	Payload    string
	PayloadHex string
	HeaderOnly bool
}

var buildOpts buildOptions

func init() {
	buildCmd.Flags().StringVar(&buildOpts.SrcIP, "src-ip", "", "source address (IPv4 or IPv6)")
	buildCmd.Flags().StringVar(&buildOpts.DstIP, "dst-ip", "", "destination address (IPv4 or IPv6)")
	buildCmd.Flags().IntVar(&buildOpts.SrcPort, "src-port", 0, "source port")
	buildCmd.Flags().IntVar(&buildOpts.DstPort, "dst-port", 0, "destination port")
	buildCmd.Flags().StringVar(&buildOpts.Payload, "payload", "", "payload as text")
	buildCmd.Flags().StringVar(&buildOpts.PayloadHex, "payload-hex", "", "payload as hex")
	buildCmd.Flags().BoolVar(&buildOpts.HeaderOnly, "header-only", false,
		"emit only the 8 header bytes; length is taken from the payload but the checksum excludes it")
}

func applyBuildDefaults(cmd *cobra.Command, opts *buildOptions, defaults config.BuildConfig) {
	flags := cmd.Flags()
	if !flags.Changed("src-ip") {
		opts.SrcIP = defaults.SrcIP
	}
	if !flags.Changed("dst-ip") {
		opts.DstIP = defaults.DstIP
	}
	if !flags.Changed("src-port") {
		opts.SrcPort = defaults.SrcPort
	}
	if !flags.Changed("dst-port") {
		opts.DstPort = defaults.DstPort
	}
}

func runBuild(opts buildOptions, w io.Writer) error {
	udp, payload, err := newUDPFromOptions(opts)
	if err != nil {
		return err
	}

	var out []byte
	if opts.HeaderOnly {
		out = make([]byte, udp.Size())
		if err := udp.Serialize(out); err != nil {
			return err
		}
	} else {
		out, err = layer.Generate(udp, payload)
		if err != nil {
			return err
		}
	}

	// Report what went on the wire, not the model.
	wire, err := layer.ParseUDP(out, udp.SrcIP, udp.DstIP)
	if err != nil {
		return err
	}
	log.GetLogger().WithFields(map[string]interface{}{
		"src":      udp.SrcIP.String(),
		"dst":      udp.DstIP.String(),
		"checksum": fmt.Sprintf("0x%04x", wire.Checksum),
	}).Debug("datagram built")

	fmt.Fprintln(w, wire.String())
	fmt.Fprintf(w, "% x\n", out)
	return nil
}

func newUDPFromOptions(opts buildOptions) (*layer.UDP, []byte, error) {
	src, err := netip.ParseAddr(opts.SrcIP)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid source address: %w", err)
	}
	dst, err := netip.ParseAddr(opts.DstIP)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid destination address: %w", err)
	}
	sport, err := portFrom("source", opts.SrcPort)
	if err != nil {
		return nil, nil, err
	}
	dport, err := portFrom("destination", opts.DstPort)
	if err != nil {
		return nil, nil, err
	}

	payload, err := payloadFrom(opts)
	if err != nil {
		return nil, nil, err
	}
	if len(payload) > 0xffff-8 {
		return nil, nil, fmt.Errorf("%w: payload of %d bytes", layer.ErrLengthOverflow, len(payload))
	}

	hdr := layer.UDPHeader{
		SrcPort: sport,
		DstPort: dport,
		Length:  uint16(8 + len(payload)),
	}
	return layer.NewUDP(hdr, src, dst), payload, nil
}

func portFrom(name string, port int) (uint16, error) {
	if port < 0 || port > 0xffff {
		return 0, fmt.Errorf("%s port %d out of range", name, port)
	}
	return uint16(port), nil
}

func payloadFrom(opts buildOptions) ([]byte, error) {
	if opts.Payload != "" && opts.PayloadHex != "" {
		return nil, errors.New("--payload and --payload-hex are mutually exclusive")
	}
	if opts.PayloadHex != "" {
		return decodeHex(opts.PayloadHex)
	}
	return []byte(opts.Payload), nil
}

// decodeHex accepts hex with optional whitespace and colons between bytes.
func decodeHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ":", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex: %w", err)
	}
	return b, nil
}
