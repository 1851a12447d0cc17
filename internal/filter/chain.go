package filter

import "firestige.xyz/pktforge/internal/core"

// Chain runs a packet through its filters in order and hands it to the
// handler once every filter has passed it on.
type Chain struct {
	filters []Filter
	handler func(pkt *core.DecodedPacket)
	current Filter
	next    *Chain
}

func NewChain(handler func(pkt *core.DecodedPacket), filters ...Filter) *Chain {
	all := make([]Filter, len(filters))
	copy(all, filters)

	chain := &Chain{filters: all, handler: handler}
	for i := len(all) - 1; i >= 0; i-- {
		chain = &Chain{filters: all, handler: handler, current: all[i], next: chain}
	}
	return chain
}

func (c *Chain) Filters() []Filter {
	return c.filters
}

// Filter passes pkt to the current filter, or to the handler at the end of
// the chain.
func (c *Chain) Filter(pkt *core.DecodedPacket) {
	if c.current != nil && c.next != nil {
		c.current.Filter(pkt, c.next)
		return
	}
	c.handler(pkt)
}
