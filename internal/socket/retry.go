// Package socket is the App-layer retry wrapper and strict BSD facade sitting
// above internal/contract.TransportSocket: bounded-retry helpers with a
// coarse error taxonomy, plus socket/bind/connect/listen/accept/recv/send/
// shutdown/getsockname/getpeername entry points shaped like their BSD
// namesakes.
package socket

import (
	"context"
	"net"
	"time"

	"netstack/internal/contract"
	"netstack/internal/nerr"
)

// RetryConfig bounds a single retry-wrapped call: at most RetryMax retries
// after the first attempt, TimeoutMs per attempt, DlyMs between attempts.
type RetryConfig struct {
	RetryMax    int
	TimeoutMs   int
	DlyMs       int
	RxThreshold int
}

// attempt runs one retry-wrapped call of fn, saving and restoring the
// socket's existing per-attempt timeout around the loop, sleeping DlyMs
// between attempts, and stopping on the first non-transitory outcome.
func attempt(ctx context.Context, sock contract.TransportSocket, h contract.Handle, cfg RetryConfig, fn func(ctx context.Context) error) error {
	saved, err := sock.CfgTimeoutRxQGet(h)
	if err != nil {
		saved = 0
	}
	if cfg.TimeoutMs > 0 {
		sock.CfgTimeoutRxQSet(h, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	}
	defer sock.CfgTimeoutRxQSet(h, saved)

	var last error
	for i := 0; i <= cfg.RetryMax; i++ {
		if i > 0 {
			sleep(ctx, time.Duration(cfg.DlyMs)*time.Millisecond)
		}
		last = fn(ctx)
		switch nerr.Classify(last) {
		case nerr.ClassSuccess:
			return nil
		case nerr.ClassTransitory:
			continue
		default:
			return last
		}
	}
	return last
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// SockConn retry-wraps contract.TransportSocket.Conn.
func SockConn(ctx context.Context, sock contract.TransportSocket, h contract.Handle, addr net.Addr, cfg RetryConfig) error {
	return attempt(ctx, sock, h, cfg, func(ctx context.Context) error {
		return sock.Conn(ctx, h, addr)
	})
}

// SockTx retry-wraps contract.TransportSocket.TxData.
func SockTx(ctx context.Context, sock contract.TransportSocket, h contract.Handle, buf []byte, cfg RetryConfig) (int, error) {
	var n int
	err := attempt(ctx, sock, h, cfg, func(ctx context.Context) error {
		var err error
		n, err = sock.TxData(ctx, h, buf)
		return err
	})
	return n, err
}

// SockRx retry-wraps contract.TransportSocket.RxData, additionally honoring
// RxThreshold: it keeps looping past a successful-but-short read until the
// accumulated byte count reaches the threshold, the retry budget runs out,
// or a terminal error occurs.
func SockRx(ctx context.Context, sock contract.TransportSocket, h contract.Handle, buf []byte, cfg RetryConfig) (int, error) {
	saved, err := sock.CfgTimeoutRxQGet(h)
	if err != nil {
		saved = 0
	}
	if cfg.TimeoutMs > 0 {
		sock.CfgTimeoutRxQSet(h, time.Duration(cfg.TimeoutMs)*time.Millisecond)
	}
	defer sock.CfgTimeoutRxQSet(h, saved)

	total := 0
	var last error
	for i := 0; i <= cfg.RetryMax; i++ {
		if i > 0 {
			sleep(ctx, time.Duration(cfg.DlyMs)*time.Millisecond)
		}
		n, err := sock.RxData(ctx, h, buf[total:])
		total += n
		last = err
		switch nerr.Classify(err) {
		case nerr.ClassSuccess:
			if total >= cfg.RxThreshold || total >= len(buf) {
				return total, nil
			}
			continue
		case nerr.ClassTransitory:
			continue
		default:
			return total, err
		}
	}
	return total, last
}
