package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/pktforge/pkg/layer"
)

func TestRunChecksum_Valid(t *testing.T) {
	var buf bytes.Buffer
	err := runChecksum(checksumOptions{
		SrcIP: "192.168.1.1", DstIP: "192.168.1.2", Hex: "00 35 00 50 00 08 7c 05",
	}, &buf)

	require.NoError(t, err)
	assert.Equal(t, "VALID: UDP: 53 -> 80, Length = 8, checksum 0x7c05\n", buf.String())
}

func TestRunChecksum_Mismatch(t *testing.T) {
	var buf bytes.Buffer
	err := runChecksum(checksumOptions{
		SrcIP: "192.168.1.1", DstIP: "192.168.1.3", Hex: "0035005000087c05",
	}, &buf)

	assert.ErrorIs(t, err, errChecksumMismatch)
	assert.Contains(t, buf.String(), "INVALID")
}

func TestRunChecksum_UnsetOverIPv4(t *testing.T) {
	var buf bytes.Buffer
	err := runChecksum(checksumOptions{
		SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Hex: "0035005000080000",
	}, &buf)

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "checksum 0x0000")
}

func TestRunChecksum_Errors(t *testing.T) {
	tests := []struct {
		name   string
		opts   checksumOptions
		target error
	}{
		{"short", checksumOptions{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Hex: "003500"}, layer.ErrPacketTooShort},
		{"mixed", checksumOptions{SrcIP: "10.0.0.1", DstIP: "::1", Hex: "0035005000087c05"}, layer.ErrAddressFamilyMismatch},
		{"length beyond data", checksumOptions{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Hex: "0035005000207c05"}, layer.ErrPacketTooShort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := runChecksum(tc.opts, &buf)
			assert.ErrorIs(t, err, tc.target)
		})
	}

	var buf bytes.Buffer
	assert.Error(t, runChecksum(checksumOptions{SrcIP: "x", DstIP: "10.0.0.2", Hex: "00"}, &buf))
	assert.Error(t, runChecksum(checksumOptions{SrcIP: "10.0.0.1", DstIP: "10.0.0.2", Hex: "0g"}, &buf))
}
