package layer

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"
)

const udpHeaderLen = 8

// UDPHeader holds the wire fields of a UDP datagram header.
// https://www.rfc-editor.org/rfc/rfc768
type UDPHeader struct {
	SrcPort  uint16
	DstPort  uint16
	Length   uint16 // header and payload, as declared
	Checksum uint16 // ignored on output, always recomputed
	Payload  []byte
}

// UDP is a UDP layer along with the enclosing network addresses needed for
// the pseudo-header checksum. Both addresses must be of the same family when
// the layer is serialized.
type UDP struct {
	UDPHeader
	SrcIP netip.Addr
	DstIP netip.Addr
}

var (
	_ Layer              = (*UDP)(nil)
	_ PayloadChecksummer = (*UDP)(nil)
)

// NewUDP creates a UDP layer. No field is validated.
func NewUDP(hdr UDPHeader, src, dst netip.Addr) *UDP {
	return &UDP{
		UDPHeader: hdr,
		SrcIP:     src,
		DstIP:     dst,
	}
}

// ParseUDP creates a UDP layer from the header at the start of raw.
// Bytes past the header are not kept: the returned layer has an empty payload.
func ParseUDP(raw []byte, src, dst netip.Addr) (*UDP, error) {
	if len(raw) < udpHeaderLen {
		return nil, fmt.Errorf("%w: udp header needs %d bytes, got %d", ErrPacketTooShort, udpHeaderLen, len(raw))
	}
	return &UDP{
		UDPHeader: UDPHeader{
			SrcPort:  binary.BigEndian.Uint16(raw[0:2]),
			DstPort:  binary.BigEndian.Uint16(raw[2:4]),
			Length:   binary.BigEndian.Uint16(raw[4:6]),
			Checksum: binary.BigEndian.Uint16(raw[6:8]),
			Payload:  []byte{},
		},
		SrcIP: src,
		DstIP: dst,
	}, nil
}

// Clone returns a deep copy of u.
func (u *UDP) Clone() *UDP {
	c := *u
	if u.Payload != nil {
		c.Payload = append([]byte{}, u.Payload...)
	}
	return &c
}

func (u *UDP) String() string {
	return fmt.Sprintf("%s: %d -> %d, Length = %d", u.Type(), u.SrcPort, u.DstPort, u.Length)
}

// Type returns LayerTypeUDP.
func (u *UDP) Type() LayerType {
	return LayerTypeUDP
}

// Size returns the UDP header length. The payload is not counted.
func (u *UDP) Size() int {
	return udpHeaderLen
}

// Serialize writes the header into buf with the declared length and a fresh
// checksum. No payload is written.
func (u *UDP) Serialize(buf []byte) error {
	return u.serialize(u.Length, buf)
}

// SerializeN writes the header into buf, declaring n payload bytes that the
// caller writes right after it. The checksum covers the pseudo-header and the
// header only; see AmendChecksum for folding the payload in.
func (u *UDP) SerializeN(n int, buf []byte) (int, error) {
	total := u.Size() + n
	if n < 0 || total > math.MaxUint16 {
		return 0, fmt.Errorf("%w: %d payload bytes", ErrLengthOverflow, n)
	}
	if err := u.serialize(uint16(total), buf); err != nil {
		return 0, err
	}
	return total, nil
}

func (u *UDP) serialize(length uint16, buf []byte) error {
	if len(buf) < udpHeaderLen {
		return fmt.Errorf("%w: udp header needs %d bytes, got %d", ErrBufferTooSmall, udpHeaderLen, len(buf))
	}
	hdr := buf[:udpHeaderLen]
	binary.BigEndian.PutUint16(hdr[0:2], u.SrcPort)
	binary.BigEndian.PutUint16(hdr[2:4], u.DstPort)
	binary.BigEndian.PutUint16(hdr[4:6], length)
	binary.BigEndian.PutUint16(hdr[6:8], 0) // blank checksum

	csum, err := transportChecksum(u.SrcIP, u.DstIP, ipProtocolUDP, int(length), hdr)
	if err != nil {
		return err
	}
	binary.BigEndian.PutUint16(hdr[6:8], csum)
	return nil
}

// AmendChecksum folds payload, written right after a header produced by
// SerializeN, into the header's checksum field.
func (u *UDP) AmendChecksum(header, payload []byte) error {
	if len(header) < udpHeaderLen {
		return fmt.Errorf("%w: udp header needs %d bytes, got %d", ErrBufferTooSmall, udpHeaderLen, len(header))
	}
	partial := ^binary.BigEndian.Uint16(header[6:8])
	csum := ^fold(sum(payload, uint32(partial)))
	if csum == 0 {
		csum = 0xffff
	}
	binary.BigEndian.PutUint16(header[6:8], csum)
	return nil
}
