package decoder

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/pktforge/internal/core"
)

const loopbackHeaderLen = 4

// decodeLoopback strips the 4-byte address family header of BSD loopback
// captures. DLT_NULL stores the family in the capturing host's byte order,
// DLT_LOOP in network order.
func decodeLoopback(data []byte, networkOrder bool) ([]byte, error) {
	if len(data) < loopbackHeaderLen {
		return nil, fmt.Errorf("%w: loopback header needs %d bytes, got %d",
			core.ErrPacketTooShort, loopbackHeaderLen, len(data))
	}

	family := binary.BigEndian.Uint32(data[:loopbackHeaderLen])
	if !networkOrder && !isIPFamily(family) {
		family = binary.LittleEndian.Uint32(data[:loopbackHeaderLen])
	}
	if !isIPFamily(family) {
		return nil, fmt.Errorf("%w: loopback family %d", core.ErrUnsupportedProto, family)
	}
	return data[loopbackHeaderLen:], nil
}

// isIPFamily reports AF_INET, or AF_INET6 as numbered on Linux, NetBSD/OpenBSD,
// FreeBSD and Darwin.
func isIPFamily(family uint32) bool {
	switch family {
	case 2, 10, 24, 28, 30:
		return true
	}
	return false
}
