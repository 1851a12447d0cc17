package decoder

import (
	"encoding/binary"
	"fmt"

	"firestige.xyz/pktforge/internal/core"
)

const (
	ethernetHeaderLen = 14
	vlanHeaderLen     = 4
	maxVLANTags       = 2

	etherTypeIPv4 = 0x0800
	etherTypeIPv6 = 0x86DD
	etherTypeVLAN = 0x8100
	etherTypeQinQ = 0x88A8
)

// decodeEthernet decodes an Ethernet II header and up to two VLAN tags.
// Returns the header and the bytes after it.
func decodeEthernet(data []byte) (core.EthernetHeader, []byte, error) {
	if len(data) < ethernetHeaderLen {
		return core.EthernetHeader{}, nil, fmt.Errorf("%w: ethernet header needs %d bytes, got %d",
			core.ErrPacketTooShort, ethernetHeaderLen, len(data))
	}

	var eth core.EthernetHeader
	copy(eth.DstMAC[:], data[0:6])
	copy(eth.SrcMAC[:], data[6:12])

	etherType := binary.BigEndian.Uint16(data[12:14])
	offset := ethernetHeaderLen

	for etherType == etherTypeVLAN || etherType == etherTypeQinQ {
		if len(eth.VLANs) == maxVLANTags {
			return eth, nil, fmt.Errorf("%w: more than %d vlan tags", core.ErrUnsupportedProto, maxVLANTags)
		}
		if len(data) < offset+vlanHeaderLen {
			return eth, nil, fmt.Errorf("%w: truncated vlan tag", core.ErrPacketTooShort)
		}

		// TCI (PCP, DEI, 12-bit VLAN ID) then the next EtherType.
		tci := binary.BigEndian.Uint16(data[offset : offset+2])
		eth.VLANs = append(eth.VLANs, tci&0x0FFF)

		etherType = binary.BigEndian.Uint16(data[offset+2 : offset+4])
		offset += vlanHeaderLen
	}

	eth.EtherType = etherType
	return eth, data[offset:], nil
}
