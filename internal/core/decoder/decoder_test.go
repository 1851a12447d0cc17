package decoder

import (
	"errors"
	"net/netip"
	"testing"
	"time"

	"github.com/google/gopacket/layers"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/pkg/layer"
)

// Helper function to create a simple IPv4 UDP packet
func makeSimpleUDPPacket() []byte {
	packet := make([]byte, 42) // Ethernet + IPv4 + UDP headers

	// Ethernet header (14 bytes)
	// Dst MAC: 00:11:22:33:44:55
	packet[0], packet[1], packet[2] = 0x00, 0x11, 0x22
	packet[3], packet[4], packet[5] = 0x33, 0x44, 0x55
	// Src MAC: AA:BB:CC:DD:EE:FF
	packet[6], packet[7], packet[8] = 0xAA, 0xBB, 0xCC
	packet[9], packet[10], packet[11] = 0xDD, 0xEE, 0xFF
	// EtherType: IPv4 (0x0800)
	packet[12], packet[13] = 0x08, 0x00

	// IPv4 header (20 bytes)
	packet[14] = 0x45                   // Version 4, IHL 5
	packet[15] = 0x00                   // DSCP, ECN
	packet[16], packet[17] = 0x00, 0x1C // Total Length: 28 bytes
	packet[18], packet[19] = 0x12, 0x34 // Identification
	packet[20], packet[21] = 0x00, 0x00 // Flags, Fragment Offset
	packet[22] = 0x40                   // TTL: 64
	packet[23] = 0x11                   // Protocol: UDP (17)
	packet[24], packet[25] = 0x00, 0x00 // Checksum (not calculated)
	// Src IP: 192.168.1.1
	packet[26], packet[27], packet[28], packet[29] = 192, 168, 1, 1
	// Dst IP: 192.168.1.2
	packet[30], packet[31], packet[32], packet[33] = 192, 168, 1, 2

	// UDP header (8 bytes)
	packet[34], packet[35] = 0x13, 0x88 // Src Port: 5000
	packet[36], packet[37] = 0x13, 0x89 // Dst Port: 5001
	packet[38], packet[39] = 0x00, 0x08 // Length: 8 bytes
	packet[40], packet[41] = 0x00, 0x00 // Checksum (not calculated)

	return packet
}

func TestStandardDecoderDecode(t *testing.T) {
	decoder := NewStandardDecoder(Config{})

	raw := core.RawPacket{
		Data:       makeSimpleUDPPacket(),
		Timestamp:  time.Now(),
		CaptureLen: 42,
		OrigLen:    42,
	}

	decoded, err := decoder.Decode(raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	// Verify Ethernet header
	if decoded.Ethernet.EtherType != 0x0800 {
		t.Errorf("Expected EtherType 0x0800, got 0x%04x", decoded.Ethernet.EtherType)
	}
	expectedSrcMAC := [6]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF}
	if decoded.Ethernet.SrcMAC != expectedSrcMAC {
		t.Errorf("Expected SrcMAC %v, got %v", expectedSrcMAC, decoded.Ethernet.SrcMAC)
	}

	// Verify IP header
	if decoded.IP.Version != 4 {
		t.Errorf("Expected IP version 4, got %d", decoded.IP.Version)
	}
	if decoded.IP.Protocol != 17 {
		t.Errorf("Expected protocol 17 (UDP), got %d", decoded.IP.Protocol)
	}
	expectedSrcIP := netip.MustParseAddr("192.168.1.1")
	if decoded.IP.SrcIP != expectedSrcIP {
		t.Errorf("Expected SrcIP %v, got %v", expectedSrcIP, decoded.IP.SrcIP)
	}
	expectedDstIP := netip.MustParseAddr("192.168.1.2")
	if decoded.IP.DstIP != expectedDstIP {
		t.Errorf("Expected DstIP %v, got %v", expectedDstIP, decoded.IP.DstIP)
	}

	// Verify UDP layer
	if decoded.UDP == nil {
		t.Fatal("Expected UDP layer, got nil")
	}
	if decoded.UDP.SrcPort != 5000 {
		t.Errorf("Expected SrcPort 5000, got %d", decoded.UDP.SrcPort)
	}
	if decoded.UDP.DstPort != 5001 {
		t.Errorf("Expected DstPort 5001, got %d", decoded.UDP.DstPort)
	}
	if decoded.UDP.SrcIP != expectedSrcIP || decoded.UDP.DstIP != expectedDstIP {
		t.Errorf("Expected UDP layer to carry the IP addresses, got %v -> %v", decoded.UDP.SrcIP, decoded.UDP.DstIP)
	}
	if got := decoded.UDP.String(); got != "UDP: 5000 -> 5001, Length = 8" {
		t.Errorf("Unexpected summary %q", got)
	}
	if len(decoded.Datagram) != 8 || len(decoded.Payload) != 0 {
		t.Errorf("Expected 8 byte datagram with empty payload, got %d/%d", len(decoded.Datagram), len(decoded.Payload))
	}
}

func TestStandardDecoderEmptyPacket(t *testing.T) {
	decoder := NewStandardDecoder(Config{})

	raw := core.RawPacket{
		Data:       []byte{},
		Timestamp:  time.Now(),
		CaptureLen: 0,
		OrigLen:    0,
	}

	_, err := decoder.Decode(raw)
	if err == nil {
		t.Error("Expected error for empty packet, got nil")
	}
}

func TestStandardDecoderTooShort(t *testing.T) {
	decoder := NewStandardDecoder(Config{})

	raw := core.RawPacket{
		Data:       []byte{0x01, 0x02, 0x03}, // Too short
		Timestamp:  time.Now(),
		CaptureLen: 3,
		OrigLen:    3,
	}

	_, err := decoder.Decode(raw)
	if !errors.Is(err, core.ErrPacketTooShort) {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
}

// makeIPv6Datagram builds a raw IPv6 packet carrying a checksummed UDP datagram.
func makeIPv6Datagram(t *testing.T, src, dst netip.Addr, payload []byte) []byte {
	t.Helper()

	datagram, err := layer.Generate(layer.NewUDP(layer.UDPHeader{SrcPort: 546, DstPort: 547}, src, dst), payload)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	packet := make([]byte, 40, 40+len(datagram))
	packet[0] = 0x60
	packet[4], packet[5] = byte(len(datagram)>>8), byte(len(datagram))
	packet[6] = 17
	packet[7] = 255
	copy(packet[8:24], src.AsSlice())
	copy(packet[24:40], dst.AsSlice())
	return append(packet, datagram...)
}

func TestStandardDecoderRawIPv6(t *testing.T) {
	src := netip.MustParseAddr("fe80::1")
	dst := netip.MustParseAddr("ff02::1:2")
	data := makeIPv6Datagram(t, src, dst, []byte("solicit"))

	decoder := NewStandardDecoder(Config{LinkType: layers.LinkTypeRaw})
	decoded, err := decoder.Decode(core.RawPacket{Data: data, CaptureLen: uint32(len(data)), OrigLen: uint32(len(data))})
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	if decoded.IP.Version != 6 {
		t.Errorf("Expected IP version 6, got %d", decoded.IP.Version)
	}
	if decoded.UDP == nil || decoded.UDP.Length != 15 {
		t.Fatalf("Expected UDP layer with length 15, got %v", decoded.UDP)
	}
	if string(decoded.Payload) != "solicit" {
		t.Errorf("Expected payload %q, got %q", "solicit", decoded.Payload)
	}

	ok, err := layer.VerifyUDPChecksum(decoded.IP.SrcIP, decoded.IP.DstIP, decoded.Datagram)
	if err != nil {
		t.Fatalf("VerifyUDPChecksum failed: %v", err)
	}
	if !ok {
		t.Error("Expected generated datagram to carry a valid checksum")
	}
}

func TestStandardDecoderNonUDP(t *testing.T) {
	packet := makeSimpleUDPPacket()
	packet[23] = 6 // Protocol: TCP

	decoder := NewStandardDecoder(Config{})
	decoded, err := decoder.Decode(core.RawPacket{Data: packet})
	if !errors.Is(err, core.ErrUnsupportedProto) {
		t.Fatalf("Expected ErrUnsupportedProto, got %v", err)
	}
	if decoded.UDP != nil {
		t.Errorf("Expected no UDP layer, got %v", decoded.UDP)
	}
	if decoded.IP.Protocol != 6 {
		t.Errorf("Expected IP header to be decoded, got protocol %d", decoded.IP.Protocol)
	}
}

func TestStandardDecoderNonIPEtherType(t *testing.T) {
	packet := makeSimpleUDPPacket()
	packet[12], packet[13] = 0x08, 0x06 // ARP

	_, err := NewStandardDecoder(Config{}).Decode(core.RawPacket{Data: packet})
	if !errors.Is(err, core.ErrUnsupportedProto) {
		t.Errorf("Expected ErrUnsupportedProto, got %v", err)
	}
}

func TestStandardDecoderUnsupportedLinkType(t *testing.T) {
	decoder := NewStandardDecoder(Config{LinkType: layers.LinkTypeLinuxSLL})

	_, err := decoder.Decode(core.RawPacket{Data: makeSimpleUDPPacket()})
	if !errors.Is(err, core.ErrUnsupportedLinkType) {
		t.Errorf("Expected ErrUnsupportedLinkType, got %v", err)
	}
}

func TestStandardDecoderTruncatedUDP(t *testing.T) {
	packet := makeSimpleUDPPacket()[:38] // UDP header cut after 4 bytes

	_, err := NewStandardDecoder(Config{}).Decode(core.RawPacket{Data: packet})
	if !errors.Is(err, core.ErrPacketTooShort) {
		t.Errorf("Expected ErrPacketTooShort, got %v", err)
	}
	if !errors.Is(err, layer.ErrPacketTooShort) {
		t.Errorf("Expected layer.ErrPacketTooShort in chain, got %v", err)
	}
}

func TestParseLinkType(t *testing.T) {
	tests := []struct {
		name    string
		want    layers.LinkType
		wantErr bool
	}{
		{"", layers.LinkTypeEthernet, false},
		{"ethernet", layers.LinkTypeEthernet, false},
		{"EN10MB", layers.LinkTypeEthernet, false},
		{"raw", layers.LinkTypeRaw, false},
		{"ipv4", layers.LinkTypeIPv4, false},
		{"ipv6", layers.LinkTypeIPv6, false},
		{"token-ring", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLinkType(tt.name)
			if tt.wantErr {
				if !errors.Is(err, core.ErrUnsupportedLinkType) {
					t.Errorf("Expected ErrUnsupportedLinkType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseLinkType(%q) failed: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("ParseLinkType(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func BenchmarkStandardDecoderDecode(b *testing.B) {
	decoder := NewStandardDecoder(Config{})
	packet := makeSimpleUDPPacket()

	raw := core.RawPacket{
		Data:       packet,
		Timestamp:  time.Now(),
		CaptureLen: uint32(len(packet)),
		OrigLen:    uint32(len(packet)),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := decoder.Decode(raw)
		if err != nil {
			b.Fatal(err)
		}
	}
}
