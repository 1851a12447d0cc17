package decoder

import (
	"errors"
	"testing"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktforge/internal/core"
)

// ipv4UDP returns the IPv4 and UDP part of makeSimpleUDPPacket.
func ipv4UDP() []byte {
	return makeSimpleUDPPacket()[ethernetHeaderLen:]
}

func TestNewCaptureDecoder(t *testing.T) {
	tests := []struct {
		linkType layers.LinkType
		wantErr  bool
	}{
		{layers.LinkTypeEthernet, false},
		{layers.LinkTypeRaw, false},
		{layers.LinkTypeIPv4, false},
		{layers.LinkTypeIPv6, false},
		{layers.LinkTypeNull, false},
		{layers.LinkTypeLoop, false},
		{layers.LinkTypeLinuxSLL, true},
		{layers.LinkTypeIEEE802_11, true},
	}

	for _, tt := range tests {
		t.Run(tt.linkType.String(), func(t *testing.T) {
			d, err := NewCaptureDecoder(tt.linkType)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnsupportedLinkType) {
					t.Errorf("Expected ErrUnsupportedLinkType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCaptureDecoder(%s) failed: %v", tt.linkType, err)
			}
			if d.linkType != tt.linkType {
				t.Errorf("linkType = %s, want %s", d.linkType, tt.linkType)
			}
		})
	}
}

func TestCaptureDecoderNullIsNotEthernet(t *testing.T) {
	d, err := NewCaptureDecoder(layers.LinkTypeNull)
	if err != nil {
		t.Fatal(err)
	}

	// An Ethernet frame misread as loopback must not yield a datagram.
	decoded, err := d.Decode(core.RawPacket{Data: makeSimpleUDPPacket()})
	if err == nil {
		t.Fatalf("Expected an error, got UDP %v", decoded.UDP)
	}
	if decoded.UDP != nil {
		t.Errorf("Expected no UDP layer, got %v", decoded.UDP)
	}
}

func TestStandardDecoderLoopback(t *testing.T) {
	tests := []struct {
		name     string
		linkType layers.LinkType
		header   []byte
	}{
		{"null little endian AF_INET", layers.LinkTypeNull, []byte{0x02, 0x00, 0x00, 0x00}},
		{"null big endian AF_INET", layers.LinkTypeNull, []byte{0x00, 0x00, 0x00, 0x02}},
		{"null darwin AF_INET6 family", layers.LinkTypeNull, []byte{0x1e, 0x00, 0x00, 0x00}},
		{"loop AF_INET", layers.LinkTypeLoop, []byte{0x00, 0x00, 0x00, 0x02}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewCaptureDecoder(tt.linkType)
			if err != nil {
				t.Fatal(err)
			}
			frame := append(append([]byte{}, tt.header...), ipv4UDP()...)

			decoded, err := d.Decode(core.RawPacket{Data: frame})
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if decoded.UDP == nil {
				t.Fatal("Expected UDP layer")
			}
			if decoded.UDP.SrcPort != 5000 || decoded.UDP.DstPort != 5001 {
				t.Errorf("ports = %d -> %d, want 5000 -> 5001", decoded.UDP.SrcPort, decoded.UDP.DstPort)
			}
			if decoded.IP.SrcIP.String() != "192.168.1.1" {
				t.Errorf("SrcIP = %s, want 192.168.1.1", decoded.IP.SrcIP)
			}
		})
	}
}

func TestStandardDecoderLoopbackErrors(t *testing.T) {
	tests := []struct {
		name     string
		linkType layers.LinkType
		data     []byte
		want     error
	}{
		{"short", layers.LinkTypeNull, []byte{0x02, 0x00}, core.ErrPacketTooShort},
		{"unknown family", layers.LinkTypeNull, []byte{0x07, 0x00, 0x00, 0x00, 0x45}, core.ErrUnsupportedProto},
		{"loop little endian", layers.LinkTypeLoop, append([]byte{0x02, 0x00, 0x00, 0x00}, ipv4UDP()...), core.ErrUnsupportedProto},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewCaptureDecoder(tt.linkType)
			if err != nil {
				t.Fatal(err)
			}
			_, err = d.Decode(core.RawPacket{Data: tt.data})
			if !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}
