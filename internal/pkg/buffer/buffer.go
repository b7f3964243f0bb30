// Package buffer supplies the reusable byte-slice pools the socket facade's
// copy helpers draw scratch buffers from, instead of allocating one per
// call: a TCP-sized pool, a UDP-sized pool, and a general relay-sized pool
// for bridging two handles together.
package buffer

import (
	"fmt"
	"sync"
)

const (
	MinBufferSize = 1024
	MaxBufferSize = 10 * 1024 * 1024

	DefaultTCPBufferSize   = 32 * 1024
	DefaultUDPBufferSize   = 64 * 1024
	DefaultRelayBufferSize = 32 * 1024
)

// pool hands out *[]byte of defaultSize, falling back to a fresh allocation
// for requests above that size rather than growing the pool's own buffers.
type pool struct {
	defaultSize int
	sp          sync.Pool
}

func newPool(defaultSize int) *pool {
	return &pool{
		defaultSize: defaultSize,
		sp: sync.Pool{New: func() any {
			b := make([]byte, defaultSize)
			return &b
		}},
	}
}

// Get returns a buffer of the pool's default size.
func (p *pool) Get() *[]byte {
	return p.GetN(p.defaultSize)
}

// GetN returns a buffer of exactly n bytes: pool-backed, resliced down to n,
// if n fits within the pool's default size; a fresh allocation otherwise.
func (p *pool) GetN(n int) *[]byte {
	if n <= p.defaultSize {
		bufp := p.sp.Get().(*[]byte)
		*bufp = (*bufp)[:n]
		return bufp
	}
	b := make([]byte, n)
	return &b
}

// Put returns bufp to the pool, restoring it to the default size first so
// a previously-resliced buffer doesn't pollute later Gets with the wrong
// length. A buffer larger than the default size is dropped rather than
// pooled, since the pool only ever allocates default-sized buffers.
func (p *pool) Put(bufp *[]byte) {
	if cap(*bufp) != p.defaultSize {
		return
	}
	*bufp = (*bufp)[:p.defaultSize]
	p.sp.Put(bufp)
}

var (
	TPool   *pool
	UPool   *pool
	TUNPool *pool
)

// Initialize builds the three pools, validating each size against
// [MinBufferSize, MaxBufferSize].
func Initialize(tSize, uSize, relaySize int) error {
	for name, size := range map[string]int{"TCP": tSize, "UDP": uSize, "relay": relaySize} {
		if size < MinBufferSize || size > MaxBufferSize {
			return fmt.Errorf("invalid %s buffer size %d, must be between %d and %d", name, size, MinBufferSize, MaxBufferSize)
		}
	}

	TPool = newPool(tSize)
	UPool = newPool(uSize)
	TUNPool = newPool(relaySize)
	return nil
}
