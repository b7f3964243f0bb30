// Package tnetsock supplies the concrete contract.TransportSocket backings
// the BSD facade sits on top of: TCP (smux-multiplexed) and UDP (a thin
// net.UDPConn wrapper).
package tnetsock

import (
	"sync"
	"sync/atomic"

	"netstack/internal/contract"
)

// handleTable is the Handle -> *entry registry shared by the TCP and UDP
// backings, mirroring the activeStreams/nextStreamID bookkeeping pattern the
// gRPC transport uses for its own multiplexed streams.
type handleTable[E any] struct {
	mu      sync.Mutex
	next    int32
	entries map[contract.Handle]*E
}

func newHandleTable[E any]() *handleTable[E] {
	return &handleTable[E]{entries: make(map[contract.Handle]*E)}
}

func (t *handleTable[E]) alloc(e *E) contract.Handle {
	h := contract.Handle(atomic.AddInt32(&t.next, 1))
	t.mu.Lock()
	t.entries[h] = e
	t.mu.Unlock()
	return h
}

func (t *handleTable[E]) get(h contract.Handle) (*E, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[h]
	return e, ok
}

func (t *handleTable[E]) delete(h contract.Handle) {
	t.mu.Lock()
	delete(t.entries, h)
	t.mu.Unlock()
}
