package decoder

import (
	"fmt"
	"net/netip"

	"firestige.xyz/pktforge/internal/core"
	"firestige.xyz/pktforge/pkg/layer"
)

// decodeUDP parses the UDP header at the start of data. The returned datagram
// is the header and payload, cut at the declared length when the capture holds
// more bytes than that.
func decodeUDP(data []byte, src, dst netip.Addr) (*layer.UDP, []byte, error) {
	udp, err := layer.ParseUDP(data, src, dst)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", core.ErrPacketTooShort, err)
	}

	end := len(data)
	if l := int(udp.Length); l >= udp.Size() && l < end {
		end = l
	}
	return udp, data[:end], nil
}
