package core

import (
	"time"

	"firestige.xyz/pktforge/pkg/layer"
)

// RawPacket is a frame as read from a capture source.
type RawPacket struct {
	Data       []byte    // Raw frame data
	Timestamp  time.Time // Capture timestamp
	CaptureLen uint32    // Actual captured length
	OrigLen    uint32    // Original frame length
}

// DecodedPacket is the result of L2-L4 decoding.
type DecodedPacket struct {
	Timestamp time.Time
	Ethernet  EthernetHeader
	IP        IPHeader
	// UDP is nil unless the transport is UDP. It never carries the payload.
	UDP *layer.UDP
	// Datagram is the UDP header and payload, bounded by the declared length
	// and the captured bytes. Zero-copy slice of the raw frame.
	Datagram   []byte
	Payload    []byte
	CaptureLen uint32
	OrigLen    uint32
}

// Truncated reports whether the capture holds fewer datagram bytes than the
// UDP header declares.
func (p *DecodedPacket) Truncated() bool {
	return p.UDP != nil && len(p.Datagram) < int(p.UDP.Length)
}
