// Package filter selects decoded datagrams through a chain of filters.
package filter

import (
	"fmt"
	"net/netip"

	"golang.org/x/net/bpf"

	"firestige.xyz/pktforge/internal/core"
)

// Filter keeps a packet by calling chain.Filter and drops it by returning.
type Filter interface {
	Filter(pkt *core.DecodedPacket, chain *Chain)
}

// CounterFilter counts the packets that reach it.
type CounterFilter struct {
	count int
}

func NewCounterFilter() *CounterFilter {
	return &CounterFilter{}
}

func (f *CounterFilter) Filter(pkt *core.DecodedPacket, chain *Chain) {
	f.count++
	chain.Filter(pkt)
}

func (f *CounterFilter) Count() int {
	return f.count
}

// PortFilter keeps datagrams whose source or destination port matches. The
// match runs as a classic BPF program over the UDP header.
type PortFilter struct {
	port uint16
	vm   *bpf.VM
}

func NewPortFilter(port uint16) (*PortFilter, error) {
	prog := portProgram(port)
	if _, err := bpf.Assemble(prog); err != nil {
		return nil, fmt.Errorf("assemble port filter: %w", err)
	}
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("load port filter: %w", err)
	}
	return &PortFilter{port: port, vm: vm}, nil
}

// portProgram accepts when the 16-bit word at offset 0 or 2 equals port.
func portProgram(port uint16) []bpf.Instruction {
	return []bpf.Instruction{
		bpf.LoadAbsolute{Off: 0, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpEqual, Val: uint32(port), SkipTrue: 2},
		bpf.LoadAbsolute{Off: 2, Size: 2},
		bpf.JumpIf{Cond: bpf.JumpNotEqual, Val: uint32(port), SkipTrue: 1},
		bpf.RetConstant{Val: 0xffff},
		bpf.RetConstant{Val: 0},
	}
}

func (f *PortFilter) Filter(pkt *core.DecodedPacket, chain *Chain) {
	if pkt.UDP == nil {
		return
	}
	// Out of bounds loads make the VM return 0.
	n, err := f.vm.Run(pkt.Datagram)
	if err != nil || n == 0 {
		return
	}
	chain.Filter(pkt)
}

// PrefixFilter keeps packets whose source or destination address falls in
// the prefix.
type PrefixFilter struct {
	prefix netip.Prefix
}

func NewPrefixFilter(cidr string) (*PrefixFilter, error) {
	p, err := netip.ParsePrefix(cidr)
	if err != nil {
		addr, aerr := netip.ParseAddr(cidr)
		if aerr != nil {
			return nil, fmt.Errorf("invalid prefix %q: %w", cidr, err)
		}
		p = netip.PrefixFrom(addr, addr.BitLen())
	}
	return &PrefixFilter{prefix: p.Masked()}, nil
}

func (f *PrefixFilter) Filter(pkt *core.DecodedPacket, chain *Chain) {
	if f.prefix.Contains(pkt.IP.SrcIP) || f.prefix.Contains(pkt.IP.DstIP) {
		chain.Filter(pkt)
	}
}
