package layer

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

const ipProtocolUDP = 17

// maxPseudoHeaderLen is the IPv6 pseudo-header size: two addresses, a 32-bit
// length, three zero bytes and the next header value.
const maxPseudoHeaderLen = 40

// appendPseudoHeader appends the checksum pseudo-header for the address pair to b.
// The address width is taken from the addresses themselves; both must be of the
// same family.
func appendPseudoHeader(b []byte, src, dst netip.Addr, proto uint8, length int) ([]byte, error) {
	if !src.IsValid() || !dst.IsValid() || src.Is4() != dst.Is4() {
		return b, fmt.Errorf("%w: %v and %v", ErrAddressFamilyMismatch, src, dst)
	}
	b = append(b, src.AsSlice()...)
	b = append(b, dst.AsSlice()...)
	if src.Is4() {
		return append(b, 0, proto, byte(length>>8), byte(length)), nil
	}
	return append(b, byte(length>>24), byte(length>>16), byte(length>>8), byte(length), 0, 0, 0, proto), nil
}

// sum adds b to initial as big-endian 16-bit words. An odd trailing byte is
// padded with zero.
func sum(b []byte, initial uint32) uint32 {
	s := initial
	n := len(b)
	if n&1 != 0 {
		n--
		s += uint32(b[n]) << 8
	}
	for i := 0; i < n; i += 2 {
		s += uint32(b[i])<<8 | uint32(b[i+1])
	}
	return s
}

// fold reduces the accumulator to 16 bits with end-around carry.
func fold(s uint32) uint16 {
	for s > 0xffff {
		s = (s >> 16) + (s & 0xffff)
	}
	return uint16(s)
}

// transportChecksum returns the checksum over the pseudo-header and data.
// The checksum field inside data must be zero.
func transportChecksum(src, dst netip.Addr, proto uint8, length int, data []byte) (uint16, error) {
	var scratch [maxPseudoHeaderLen]byte
	ph, err := appendPseudoHeader(scratch[:0], src, dst, proto, length)
	if err != nil {
		return 0, err
	}
	csum := ^fold(sum(data, sum(ph, 0)))
	// RFC 768: an all-zero result goes out as all ones.
	if csum == 0 {
		csum = 0xffff
	}
	return csum, nil
}

// VerifyUDPChecksum reports whether the checksum of a captured datagram
// (header and payload) is valid for the given address pair. The datagram is
// read up to its declared length. A zero checksum over IPv4 means the sender
// did not compute one and is accepted.
func VerifyUDPChecksum(src, dst netip.Addr, datagram []byte) (bool, error) {
	if len(datagram) < udpHeaderLen {
		return false, fmt.Errorf("%w: %d bytes", ErrPacketTooShort, len(datagram))
	}
	length := int(binary.BigEndian.Uint16(datagram[4:6]))
	if length < udpHeaderLen || length > len(datagram) {
		return false, fmt.Errorf("%w: declared length %d, have %d bytes", ErrPacketTooShort, length, len(datagram))
	}

	var scratch [maxPseudoHeaderLen]byte
	ph, err := appendPseudoHeader(scratch[:0], src, dst, ipProtocolUDP, length)
	if err != nil {
		return false, err
	}
	if binary.BigEndian.Uint16(datagram[6:8]) == 0 && src.Is4() {
		return true, nil
	}
	return fold(sum(datagram[:length], sum(ph, 0))) == 0xffff, nil
}
