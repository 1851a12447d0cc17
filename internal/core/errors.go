// Package core defines sentinel errors.
package core

import "errors"

// Sentinel errors, wrapped with fmt.Errorf("...: %w") at call sites.
var (
	// Packet decoding errors
	ErrPacketTooShort      = errors.New("pktforge: packet too short")
	ErrUnsupportedProto    = errors.New("pktforge: unsupported protocol")
	ErrUnsupportedLinkType = errors.New("pktforge: unsupported link type")

	// Configuration errors
	ErrConfigInvalid = errors.New("pktforge: invalid configuration")
)
