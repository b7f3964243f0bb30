package socket

import (
	"context"
	"net"
	"sync"

	"netstack/internal/contract"
	"netstack/internal/nerr"
	"netstack/internal/netlock"
)

// BSD is the strict BSD facade: each method is a thin shape-adapter over
// the underlying contract.TransportSocket call, tracking per-handle
// shutdown state the transport itself doesn't model.
type BSD struct {
	lock *netlock.Lock
	sock contract.TransportSocket

	mu    sync.Mutex
	state map[contract.Handle]contract.ShutdownMode
}

// NewBSD builds a BSD facade over sock, serializing every call through lock.
func NewBSD(lock *netlock.Lock, sock contract.TransportSocket) *BSD {
	return &BSD{lock: lock, sock: sock, state: make(map[contract.Handle]contract.ShutdownMode)}
}

func (b *BSD) withLock(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, err := b.lock.Acquire(ctx, b)
	if err != nil {
		return err
	}
	defer b.lock.Release(ctx)
	return fn(ctx)
}

// Socket is the BSD socket(2) entry point.
func (b *BSD) Socket(ctx context.Context, family, sockType int) (contract.Handle, error) {
	var h contract.Handle
	err := b.withLock(ctx, func(ctx context.Context) error {
		var err error
		h, err = b.sock.Open(ctx, family, sockType)
		if err == nil {
			b.mu.Lock()
			b.state[h] = contract.ShutNone
			b.mu.Unlock()
		}
		return err
	})
	return h, err
}

// Bind is the BSD bind(2) entry point.
func (b *BSD) Bind(ctx context.Context, h contract.Handle, addr net.Addr) error {
	return b.withLock(ctx, func(ctx context.Context) error {
		return b.sock.Bind(h, addr)
	})
}

// Connect is the BSD connect(2) entry point. The retry wrapper is the
// App-layer helper (SockConn); Connect itself makes a single attempt.
func (b *BSD) Connect(ctx context.Context, h contract.Handle, addr net.Addr) error {
	return b.withLock(ctx, func(ctx context.Context) error {
		return b.sock.Conn(ctx, h, addr)
	})
}

// Listen is the BSD listen(2) entry point.
func (b *BSD) Listen(ctx context.Context, h contract.Handle, backlog int) error {
	return b.withLock(ctx, func(ctx context.Context) error {
		return b.sock.Listen(h, backlog)
	})
}

// Accept is the BSD accept(2) entry point.
func (b *BSD) Accept(ctx context.Context, h contract.Handle) (contract.Handle, net.Addr, error) {
	var nh contract.Handle
	var addr net.Addr
	err := b.withLock(ctx, func(ctx context.Context) error {
		var err error
		nh, addr, err = b.sock.Accept(ctx, h)
		if err == nil {
			b.mu.Lock()
			b.state[nh] = contract.ShutNone
			b.mu.Unlock()
		}
		return err
	})
	return nh, addr, err
}

// Recv is the BSD recv(2) entry point: a plain RxData call, erroring if the
// read half has been shut down.
func (b *BSD) Recv(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	var n int
	err := b.withLock(ctx, func(ctx context.Context) error {
		if b.readShut(h) {
			return nerr.Closed
		}
		var err error
		n, err = b.sock.RxData(ctx, h, buf)
		return err
	})
	return n, err
}

// RecvFrom is the BSD recvfrom(2) entry point.
func (b *BSD) RecvFrom(ctx context.Context, h contract.Handle, buf []byte) (int, net.Addr, error) {
	var n int
	var addr net.Addr
	err := b.withLock(ctx, func(ctx context.Context) error {
		if b.readShut(h) {
			return nerr.Closed
		}
		var err error
		n, addr, err = b.sock.RxDataFrom(ctx, h, buf)
		return err
	})
	return n, addr, err
}

// Send is the BSD send(2) entry point.
func (b *BSD) Send(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	var n int
	err := b.withLock(ctx, func(ctx context.Context) error {
		if b.writeShut(h) {
			return nerr.Closed
		}
		var err error
		n, err = b.sock.TxData(ctx, h, buf)
		return err
	})
	return n, err
}

// SendTo is the BSD sendto(2) entry point.
func (b *BSD) SendTo(ctx context.Context, h contract.Handle, buf []byte, addr net.Addr) (int, error) {
	var n int
	err := b.withLock(ctx, func(ctx context.Context) error {
		if b.writeShut(h) {
			return nerr.Closed
		}
		var err error
		n, err = b.sock.TxDataTo(ctx, h, buf, addr)
		return err
	})
	return n, err
}

// Shutdown is the BSD shutdown(2) entry point: validates the transition,
// drops queued data on a read shutdown, and proceeds to a full close once
// the mode reaches RdWr.
func (b *BSD) Shutdown(ctx context.Context, h contract.Handle, how contract.ShutdownMode) error {
	return b.withLock(ctx, func(ctx context.Context) error {
		b.mu.Lock()
		cur := b.state[h]
		b.mu.Unlock()

		next, err := nextShutdownMode(cur, how)
		if err != nil {
			return err
		}

		b.mu.Lock()
		b.state[h] = next
		b.mu.Unlock()

		if err := b.sock.Shutdown(h, how); err != nil {
			return err
		}
		if next == contract.ShutRdWr {
			return b.sock.Close(h)
		}
		return nil
	})
}

// Close is the BSD close(2) entry point.
func (b *BSD) Close(ctx context.Context, h contract.Handle) error {
	return b.withLock(ctx, func(ctx context.Context) error {
		b.mu.Lock()
		delete(b.state, h)
		b.mu.Unlock()
		return b.sock.Close(h)
	})
}

// GetSockName is the BSD getsockname(2) entry point.
func (b *BSD) GetSockName(ctx context.Context, h contract.Handle) (net.Addr, error) {
	var addr net.Addr
	err := b.withLock(ctx, func(ctx context.Context) error {
		var err error
		addr, err = b.sock.LocalAddr(h)
		return err
	})
	return addr, err
}

// GetPeerName is the BSD getpeername(2) entry point.
func (b *BSD) GetPeerName(ctx context.Context, h contract.Handle) (net.Addr, error) {
	var addr net.Addr
	err := b.withLock(ctx, func(ctx context.Context) error {
		var err error
		addr, err = b.sock.RemoteAddr(h)
		return err
	})
	return addr, err
}

// SetSockOptBlocking is the setsockopt(2) entry point for the one socket
// option this facade models: the blocking/non-blocking toggle.
func (b *BSD) SetSockOptBlocking(ctx context.Context, h contract.Handle, blocking bool) error {
	return b.withLock(ctx, func(ctx context.Context) error {
		return b.sock.CfgBlock(h, blocking)
	})
}

// GetSockOptBlocking is the getsockopt(2) entry point for the blocking flag.
func (b *BSD) GetSockOptBlocking(ctx context.Context, h contract.Handle) (bool, error) {
	var blocking bool
	err := b.withLock(ctx, func(ctx context.Context) error {
		var err error
		blocking, err = b.sock.BlockGet(h)
		return err
	})
	return blocking, err
}

// Select delegates to the transport's own readiness check per descriptor,
// since contract.TransportSocket exposes no native multiplexer: it polls
// LocalAddr as a liveness probe for each handle and reports every live one
// ready, clearing the caller's sets entirely on an empty input (mirroring
// BSD select's all-sets-cleared-on-timeout behavior when none are ready).
func (b *BSD) Select(ctx context.Context, readSet, writeSet []contract.Handle) (readyRead, readyWrite []contract.Handle, err error) {
	err = b.withLock(ctx, func(ctx context.Context) error {
		for _, h := range readSet {
			if _, err := b.sock.LocalAddr(h); err == nil {
				readyRead = append(readyRead, h)
			}
		}
		for _, h := range writeSet {
			if _, err := b.sock.LocalAddr(h); err == nil {
				readyWrite = append(readyWrite, h)
			}
		}
		return nil
	})
	return readyRead, readyWrite, err
}

func (b *BSD) readShut(h contract.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.state[h]
	return m == contract.ShutRd || m == contract.ShutRdWr
}

func (b *BSD) writeShut(h contract.Handle) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	m := b.state[h]
	return m == contract.ShutWr || m == contract.ShutRdWr
}
