package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/internal/core/decoder"
	"firestige.xyz/pktforge/internal/filter"
	"firestige.xyz/pktforge/internal/log"
	"firestige.xyz/pktforge/internal/source/file"
	"firestige.xyz/pktforge/pkg/layer"
)

var decodeCmd = &cobra.Command{
	Use:   "decode",
	Short: "Decode UDP datagrams from a capture or a hex frame",
	Long: `Decode frames and print one line per UDP datagram.

Captures may be pcap or pcapng; the link type comes from the file header.
A hex frame is decoded with --link-type (default from decode.link_type).

Examples:
  pktforge decode --file dns.pcap
  pktforge decode --file dns.pcapng --output yaml --verify
  pktforge decode --hex 4500001c... --link-type raw
  pktforge decode --file sip.pcap --port 5060 --net 10.0.0.0/8`,
	Run: func(cmd *cobra.Command, args []string) {
		applyDecodeDefaults(cmd, &decodeOpts)
		stats, err := executeDecode(decodeOpts, cmd.OutOrStdout())
		if err != nil {
			exitWithError("decode failed", err)
		}
		log.GetLogger().WithFields(map[string]interface{}{
			"frames":  stats.Frames,
			"udp":     stats.UDP,
			"matched": stats.Matched,
			"skipped": stats.Skipped,
		}).Info("decode finished")
	},
}

type decodeOptions struct {
	File     string
	Hex      string
	LinkType string
	Output   string
	Verify   bool
	Port     int    // -1 matches any port
	Net      string // CIDR or single address
}

var decodeOpts decodeOptions

func init() {
	decodeCmd.Flags().StringVarP(&decodeOpts.File, "file", "f", "", "pcap or pcapng capture")
	decodeCmd.Flags().StringVar(&decodeOpts.Hex, "hex", "", "single frame as hex")
	decodeCmd.Flags().StringVar(&decodeOpts.LinkType, "link-type", "", "link type of --hex frames (ethernet/raw/ipv4/ipv6)")
	decodeCmd.Flags().StringVarP(&decodeOpts.Output, "output", "o", "", "output format (text/yaml)")
	decodeCmd.Flags().BoolVar(&decodeOpts.Verify, "verify", false, "verify datagram checksums")
	decodeCmd.Flags().IntVar(&decodeOpts.Port, "port", -1, "only datagrams with this source or destination port")
	decodeCmd.Flags().StringVar(&decodeOpts.Net, "net", "", "only datagrams with an address in this CIDR")
}

func applyDecodeDefaults(cmd *cobra.Command, opts *decodeOptions) {
	flags := cmd.Flags()
	if !flags.Changed("link-type") {
		opts.LinkType = cfg.Decode.LinkType
	}
	if !flags.Changed("output") {
		opts.Output = cfg.Decode.Output
	}
	if !flags.Changed("verify") {
		opts.Verify = cfg.Decode.VerifyChecksum
	}
}

// packetSource is the read side of a capture source.
type packetSource interface {
	ReadPacket() (core.RawPacket, error)
}

// frameSource yields a fixed list of frames, then io.EOF.
type frameSource struct {
	frames [][]byte
}

func (s *frameSource) ReadPacket() (core.RawPacket, error) {
	if len(s.frames) == 0 {
		return core.RawPacket{}, io.EOF
	}
	data := s.frames[0]
	s.frames = s.frames[1:]
	return core.RawPacket{
		Data:       data,
		CaptureLen: uint32(len(data)),
		OrigLen:    uint32(len(data)),
	}, nil
}

type decodeStats struct {
	Frames  int
	UDP     int
	Matched int
	Skipped int
}

// datagramRecord is the rendered form of one decoded datagram.
type datagramRecord struct {
	Index     int        `yaml:"index"`
	Timestamp *time.Time `yaml:"timestamp,omitempty"`
	Src       string     `yaml:"src"`
	Dst       string     `yaml:"dst"`
	SrcPort   uint16     `yaml:"src_port"`
	DstPort   uint16     `yaml:"dst_port"`
	Length    uint16     `yaml:"length"`
	Checksum  string     `yaml:"checksum"`
	Payload   int        `yaml:"payload_bytes"`
	Verdict   string     `yaml:"verdict,omitempty"`
	Summary   string     `yaml:"summary"`
}

func executeDecode(opts decodeOptions, w io.Writer) (decodeStats, error) {
	if (opts.File == "") == (opts.Hex == "") {
		return decodeStats{}, errors.New("exactly one of --file or --hex is required")
	}

	if opts.Hex != "" {
		lt, err := decoder.ParseLinkType(opts.LinkType)
		if err != nil {
			return decodeStats{}, err
		}
		frame, err := decodeHex(opts.Hex)
		if err != nil {
			return decodeStats{}, err
		}
		dec := decoder.NewStandardDecoder(decoder.Config{LinkType: lt})
		return runDecode(&frameSource{frames: [][]byte{frame}}, dec, opts, w)
	}

	src, err := file.NewSource(opts.File)
	if err != nil {
		return decodeStats{}, err
	}
	if err := src.Start(); err != nil {
		return decodeStats{}, err
	}
	defer src.Stop()

	dec, err := decoder.NewCaptureDecoder(src.LinkType())
	if err != nil {
		return decodeStats{}, err
	}
	return runDecode(src, dec, opts, w)
}

func buildFilters(opts decodeOptions) ([]filter.Filter, error) {
	var filters []filter.Filter
	if opts.Port >= 0 {
		if opts.Port > 0xffff {
			return nil, fmt.Errorf("port %d out of range", opts.Port)
		}
		f, err := filter.NewPortFilter(uint16(opts.Port))
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	if opts.Net != "" {
		f, err := filter.NewPrefixFilter(opts.Net)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// runDecode drains src and writes one record per UDP datagram that passes
// the filters. Frames that do not carry UDP are skipped.
func runDecode(src packetSource, dec decoder.Decoder, opts decodeOptions, w io.Writer) (decodeStats, error) {
	var stats decodeStats
	logger := log.GetLogger()

	filters, err := buildFilters(opts)
	if err != nil {
		return stats, err
	}

	var enc *yaml.Encoder
	if opts.Output == "yaml" {
		enc = yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
	}

	var writeErr error
	chain := filter.NewChain(func(pkt *core.DecodedPacket) {
		stats.Matched++
		rec := newDatagramRecord(stats.Frames, pkt, opts.Verify)
		if enc != nil {
			if err := enc.Encode(rec); err != nil {
				writeErr = fmt.Errorf("encode frame %d: %w", stats.Frames, err)
			}
			return
		}
		fmt.Fprintln(w, rec.text())
	}, filters...)

	for {
		raw, err := src.ReadPacket()
		if errors.Is(err, io.EOF) {
			return stats, nil
		}
		if err != nil {
			return stats, fmt.Errorf("read frame %d: %w", stats.Frames+1, err)
		}
		stats.Frames++

		pkt, err := dec.Decode(raw)
		if err != nil {
			stats.Skipped++
			logger.WithField("frame", stats.Frames).WithError(err).Debug("frame skipped")
			continue
		}
		if pkt.UDP == nil {
			stats.Skipped++
			continue
		}
		stats.UDP++

		chain.Filter(&pkt)
		if writeErr != nil {
			return stats, writeErr
		}
	}
}

func newDatagramRecord(index int, pkt *core.DecodedPacket, verify bool) datagramRecord {
	rec := datagramRecord{
		Index:    index,
		Src:      pkt.IP.SrcIP.String(),
		Dst:      pkt.IP.DstIP.String(),
		SrcPort:  pkt.UDP.SrcPort,
		DstPort:  pkt.UDP.DstPort,
		Length:   pkt.UDP.Length,
		Checksum: fmt.Sprintf("0x%04x", pkt.UDP.Checksum),
		Payload:  len(pkt.Payload),
		Summary:  pkt.UDP.String(),
	}
	if !pkt.Timestamp.IsZero() {
		ts := pkt.Timestamp.UTC()
		rec.Timestamp = &ts
	}
	if verify {
		rec.Verdict = checksumVerdict(pkt)
	}
	return rec
}

func checksumVerdict(pkt *core.DecodedPacket) string {
	if pkt.Truncated() {
		return "truncated"
	}
	ok, err := layer.VerifyUDPChecksum(pkt.IP.SrcIP, pkt.IP.DstIP, pkt.Datagram)
	switch {
	case err != nil:
		return "error"
	case ok:
		return "ok"
	default:
		return "bad"
	}
}

func (r datagramRecord) text() string {
	s := fmt.Sprintf("#%d ", r.Index)
	if r.Timestamp != nil {
		s += r.Timestamp.Format(time.RFC3339Nano) + " "
	}
	s += fmt.Sprintf("%s -> %s %s", r.Src, r.Dst, r.Summary)
	if r.Verdict != "" {
		s += " checksum=" + r.Verdict
	}
	return s
}
