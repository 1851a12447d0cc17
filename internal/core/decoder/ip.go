package decoder

import (
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"

	"firestige.xyz/pktforge/internal/core"
)

const (
	ipv4HeaderMinLen = ipv4.HeaderLen
	ipv6HeaderLen    = ipv6.HeaderLen

	protocolUDP = 17
)

// decodeIP decodes an IPv4 or IPv6 header.
// Returns IPHeader and the IP payload, with link-layer padding removed.
func decodeIP(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < 1 {
		return core.IPHeader{}, nil, fmt.Errorf("%w: empty ip packet", core.ErrPacketTooShort)
	}

	switch version := data[0] >> 4; version {
	case 4:
		return decodeIPv4(data)
	case 6:
		return decodeIPv6(data)
	default:
		return core.IPHeader{}, nil, fmt.Errorf("%w: ip version %d", core.ErrUnsupportedProto, version)
	}
}

// decodeIPv4 decodes an IPv4 header, options included.
func decodeIPv4(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < ipv4HeaderMinLen {
		return core.IPHeader{}, nil, fmt.Errorf("%w: ipv4 header needs %d bytes, got %d",
			core.ErrPacketTooShort, ipv4HeaderMinLen, len(data))
	}
	if ihl := int(data[0]&0x0F) << 2; ihl < ipv4HeaderMinLen {
		return core.IPHeader{}, nil, fmt.Errorf("%w: ipv4 header length %d", core.ErrPacketTooShort, ihl)
	}

	h, err := ipv4.ParseHeader(data)
	if err != nil {
		return core.IPHeader{}, nil, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}

	// ipv4.Header.TotalLen and FragOff follow the host's raw socket
	// conventions on some platforms; read them off the wire instead.
	totalLen := binary.BigEndian.Uint16(data[2:4])
	fragOff := binary.BigEndian.Uint16(data[6:8]) & 0x1FFF

	ip := core.IPHeader{
		Version:  4,
		SrcIP:    addrFrom(h.Src.To4()),
		DstIP:    addrFrom(h.Dst.To4()),
		Protocol: uint8(h.Protocol),
		TTL:      uint8(h.TTL),
		TotalLen: totalLen,
	}

	if fragOff != 0 {
		return ip, nil, fmt.Errorf("%w: non-first ipv4 fragment", core.ErrUnsupportedProto)
	}

	end := len(data)
	if int(totalLen) >= h.Len && int(totalLen) < end {
		end = int(totalLen)
	}
	return ip, data[h.Len:end], nil
}

// decodeIPv6 decodes the fixed IPv6 header. Extension headers are not walked:
// the next header value is reported as the protocol.
func decodeIPv6(data []byte) (core.IPHeader, []byte, error) {
	if len(data) < ipv6HeaderLen {
		return core.IPHeader{}, nil, fmt.Errorf("%w: ipv6 header needs %d bytes, got %d",
			core.ErrPacketTooShort, ipv6HeaderLen, len(data))
	}

	h, err := ipv6.ParseHeader(data)
	if err != nil {
		return core.IPHeader{}, nil, fmt.Errorf("%w: %v", core.ErrPacketTooShort, err)
	}

	ip := core.IPHeader{
		Version:  6,
		SrcIP:    addrFrom(h.Src),
		DstIP:    addrFrom(h.Dst),
		Protocol: uint8(h.NextHeader),
		TTL:      uint8(h.HopLimit),
		TotalLen: uint16(ipv6HeaderLen + h.PayloadLen),
	}

	end := len(data)
	if ipv6HeaderLen+h.PayloadLen < end {
		end = ipv6HeaderLen + h.PayloadLen
	}
	return ip, data[ipv6HeaderLen:end], nil
}

// addrFrom converts a 4 or 16 byte address. A 16 byte IPv4-mapped address
// stays in the IPv6 family.
func addrFrom(ip net.IP) netip.Addr {
	addr, _ := netip.AddrFromSlice(ip)
	return addr
}
