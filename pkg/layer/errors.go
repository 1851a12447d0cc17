package layer

import "errors"

var (
	ErrBufferTooSmall        = errors.New("layer: buffer too small")
	ErrAddressFamilyMismatch = errors.New("layer: source and destination address families do not match")
	ErrLengthOverflow        = errors.New("layer: length does not fit in 16 bits")
	ErrPacketTooShort        = errors.New("layer: packet too short")
)
