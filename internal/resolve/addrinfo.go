package resolve

import (
	"net"
	"sync"
)

// AddrInfo is one resolved address record, chained via Next the way the BSD
// struct addrinfo linked list is.
type AddrInfo struct {
	Family    int
	SockType  int
	Protocol  Protocol
	Addr      net.IP
	Port      uint16
	CanonName string
	Next      *AddrInfo
}

// addrInfoPool is a bounded sync.Pool-backed allocator: Get never exceeds
// the configured ceiling, matching the "bounded memory" requirement instead
// of sync.Pool's own unbounded-growth default behavior.
type addrInfoPool struct {
	pool sync.Pool

	mu   sync.Mutex
	used int
	max  int
}

func newAddrInfoPool(max int) *addrInfoPool {
	return &addrInfoPool{
		pool: sync.Pool{New: func() any { return &AddrInfo{} }},
		max:  max,
	}
}

func (p *addrInfoPool) get() (*AddrInfo, bool) {
	p.mu.Lock()
	if p.used >= p.max {
		p.mu.Unlock()
		return nil, false
	}
	p.used++
	p.mu.Unlock()

	ai := p.pool.Get().(*AddrInfo)
	*ai = AddrInfo{}
	return ai, true
}

// freeChain returns every node in the chain starting at head to the pool.
func (p *addrInfoPool) freeChain(head *AddrInfo) {
	for head != nil {
		next := head.Next
		head.Next = nil
		p.pool.Put(head)
		p.mu.Lock()
		p.used--
		p.mu.Unlock()
		head = next
	}
}
