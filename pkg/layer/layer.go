// Package layer defines the packet layer contract and the layers pktforge can build.
package layer

// LayerType identifies a protocol layer kind.
type LayerType uint8

const (
	LayerTypeEthernet LayerType = iota + 1
	LayerTypeARP
	LayerTypeIPv4
	LayerTypeIPv6
	LayerTypeICMPv4
	LayerTypeICMPv6
	LayerTypeTCP
	LayerTypeUDP
)

var layerTypeNames = map[LayerType]string{
	LayerTypeEthernet: "Ethernet",
	LayerTypeARP:      "ARP",
	LayerTypeIPv4:     "IPv4",
	LayerTypeIPv6:     "IPv6",
	LayerTypeICMPv4:   "ICMPv4",
	LayerTypeICMPv6:   "ICMPv6",
	LayerTypeTCP:      "TCP",
	LayerTypeUDP:      "UDP",
}

func (t LayerType) String() string {
	if name, ok := layerTypeNames[t]; ok {
		return name
	}
	return "Unknown"
}

// Layer is a protocol layer capable of writing itself into a byte buffer.
type Layer interface {
	// Type returns the layer kind.
	Type() LayerType
	// Size returns the length of the layer's own header, payload excluded.
	Size() int
	// Serialize writes the header into the first Size() bytes of buf.
	Serialize(buf []byte) error
	// SerializeN is like Serialize, but accounts for n bytes that the caller
	// writes right after the header. It returns Size()+n.
	SerializeN(n int, buf []byte) (int, error)
	// String returns a one-line summary.
	String() string
}

// PayloadChecksummer is implemented by layers whose checksum also covers the
// payload written after them.
type PayloadChecksummer interface {
	AmendChecksum(header, payload []byte) error
}

// Generate builds a new packet made of l followed by payload.
// Unlike Layer.Serialize, this allocates.
func Generate(l Layer, payload []byte) ([]byte, error) {
	hlen := l.Size()
	buf := make([]byte, hlen+len(payload))

	total, err := l.SerializeN(len(payload), buf)
	if err != nil {
		return nil, err
	}
	copy(buf[hlen:], payload)

	if pc, ok := l.(PayloadChecksummer); ok {
		if err := pc.AmendChecksum(buf[:hlen], payload); err != nil {
			return nil, err
		}
	}
	return buf[:total], nil
}
