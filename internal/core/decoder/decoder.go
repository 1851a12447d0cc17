// Package decoder implements L2-L4 protocol stack decoding down to the UDP layer.
package decoder

import (
	"fmt"
	"strings"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktforge/internal/core"
)

// Decoder decodes raw packets into structured format.
type Decoder interface {
	Decode(raw core.RawPacket) (core.DecodedPacket, error)
}

// Config configures a StandardDecoder.
type Config struct {
	// LinkType of the frames handed to Decode. The zero value means Ethernet.
	LinkType layers.LinkType
}

// StandardDecoder decodes Ethernet or raw IP frames carrying UDP datagrams.
type StandardDecoder struct {
	linkType layers.LinkType
}

// NewStandardDecoder creates a decoder for the configured link type.
func NewStandardDecoder(cfg Config) *StandardDecoder {
	lt := cfg.LinkType
	if lt == layers.LinkTypeNull {
		lt = layers.LinkTypeEthernet
	}
	return &StandardDecoder{linkType: lt}
}

// NewCaptureDecoder creates a decoder for the link type a capture file
// declares. Unlike Config, LinkTypeNull is taken literally as BSD loopback.
func NewCaptureDecoder(lt layers.LinkType) (*StandardDecoder, error) {
	switch lt {
	case layers.LinkTypeEthernet, layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeIPv6,
		layers.LinkTypeNull, layers.LinkTypeLoop:
		return &StandardDecoder{linkType: lt}, nil
	default:
		return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedLinkType, lt)
	}
}

// ParseLinkType maps a configuration name to a link type.
func ParseLinkType(name string) (layers.LinkType, error) {
	switch strings.ToLower(name) {
	case "", "ethernet", "en10mb":
		return layers.LinkTypeEthernet, nil
	case "raw":
		return layers.LinkTypeRaw, nil
	case "ipv4":
		return layers.LinkTypeIPv4, nil
	case "ipv6":
		return layers.LinkTypeIPv6, nil
	default:
		return 0, fmt.Errorf("%w: %q", core.ErrUnsupportedLinkType, name)
	}
}

// Decode decodes a frame. On ErrUnsupportedProto the returned packet still
// holds the layers that were decoded before the unsupported one.
func (d *StandardDecoder) Decode(raw core.RawPacket) (core.DecodedPacket, error) {
	pkt := core.DecodedPacket{
		Timestamp:  raw.Timestamp,
		CaptureLen: raw.CaptureLen,
		OrigLen:    raw.OrigLen,
	}

	data := raw.Data
	switch d.linkType {
	case layers.LinkTypeEthernet:
		eth, payload, err := decodeEthernet(data)
		if err != nil {
			return pkt, fmt.Errorf("decode ethernet: %w", err)
		}
		pkt.Ethernet = eth
		if eth.EtherType != etherTypeIPv4 && eth.EtherType != etherTypeIPv6 {
			return pkt, fmt.Errorf("%w: ethertype 0x%04x", core.ErrUnsupportedProto, eth.EtherType)
		}
		data = payload
	case layers.LinkTypeNull, layers.LinkTypeLoop:
		payload, err := decodeLoopback(data, d.linkType == layers.LinkTypeLoop)
		if err != nil {
			return pkt, fmt.Errorf("decode loopback: %w", err)
		}
		data = payload
	case layers.LinkTypeRaw, layers.LinkTypeIPv4, layers.LinkTypeIPv6:
	default:
		return pkt, fmt.Errorf("%w: %s", core.ErrUnsupportedLinkType, d.linkType)
	}

	ip, payload, err := decodeIP(data)
	if err != nil {
		return pkt, fmt.Errorf("decode ip: %w", err)
	}
	pkt.IP = ip

	if ip.Protocol != protocolUDP {
		return pkt, fmt.Errorf("%w: ip protocol %d", core.ErrUnsupportedProto, ip.Protocol)
	}

	udp, datagram, err := decodeUDP(payload, ip.SrcIP, ip.DstIP)
	if err != nil {
		return pkt, fmt.Errorf("decode udp: %w", err)
	}
	pkt.UDP = udp
	pkt.Datagram = datagram
	pkt.Payload = datagram[udp.Size():]

	return pkt, nil
}
