package socket

import (
	"context"
	"net"
	"testing"
	"time"

	"netstack/internal/contract"
	"netstack/internal/nerr"
)

// fakeTransport is a minimal contract.TransportSocket stub exercising only
// the methods the retry wrapper and BSD facade call.
type fakeTransport struct {
	connAttempts int
	connErrs     []error

	timeout time.Duration
}

func (f *fakeTransport) Open(ctx context.Context, family, sockType int) (contract.Handle, error) {
	return 1, nil
}
func (f *fakeTransport) Close(h contract.Handle) error       { return nil }
func (f *fakeTransport) Bind(h contract.Handle, addr net.Addr) error { return nil }

func (f *fakeTransport) Conn(ctx context.Context, h contract.Handle, addr net.Addr) error {
	idx := f.connAttempts
	f.connAttempts++
	if idx < len(f.connErrs) {
		return f.connErrs[idx]
	}
	return nil
}

func (f *fakeTransport) Listen(h contract.Handle, backlog int) error { return nil }
func (f *fakeTransport) Accept(ctx context.Context, h contract.Handle) (contract.Handle, net.Addr, error) {
	return 0, nil, nerr.InvalidOp
}
func (f *fakeTransport) RxData(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	return 0, nerr.InvalidOp
}
func (f *fakeTransport) RxDataFrom(ctx context.Context, h contract.Handle, buf []byte) (int, net.Addr, error) {
	return 0, nil, nerr.InvalidOp
}
func (f *fakeTransport) TxData(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	return len(buf), nil
}
func (f *fakeTransport) TxDataTo(ctx context.Context, h contract.Handle, buf []byte, addr net.Addr) (int, error) {
	return 0, nerr.InvalidOp
}
func (f *fakeTransport) CfgTimeoutRxQSet(h contract.Handle, d time.Duration) error {
	f.timeout = d
	return nil
}
func (f *fakeTransport) CfgTimeoutRxQGet(h contract.Handle) (time.Duration, error) {
	return f.timeout, nil
}
func (f *fakeTransport) CfgTimeoutTxQSet(h contract.Handle, d time.Duration) error { return nil }
func (f *fakeTransport) CfgTimeoutTxQGet(h contract.Handle) (time.Duration, error) { return 0, nil }
func (f *fakeTransport) CfgTimeoutConnReqSet(h contract.Handle, d time.Duration) error {
	return nil
}
func (f *fakeTransport) CfgTimeoutConnAcceptSet(h contract.Handle, d time.Duration) error {
	return nil
}
func (f *fakeTransport) CfgBlock(h contract.Handle, blocking bool) error { return nil }
func (f *fakeTransport) BlockGet(h contract.Handle) (bool, error)       { return true, nil }
func (f *fakeTransport) LocalAddr(h contract.Handle) (net.Addr, error) { return nil, nil }
func (f *fakeTransport) RemoteAddr(h contract.Handle) (net.Addr, error) {
	return nil, nil
}
func (f *fakeTransport) IsConn(h contract.Handle) bool { return f.connAttempts > 0 }
func (f *fakeTransport) Shutdown(h contract.Handle, mode contract.ShutdownMode) error {
	return nil
}

var _ contract.TransportSocket = (*fakeTransport)(nil)

// TestSockConnRetriesOnAddrInUse verifies the scenario: a first attempt
// failing with AddrInUse and a second succeeding with None results in two
// attempts at least 100ms apart, a final success, and the pre-call timeout
// restored afterward.
func TestSockConnRetriesOnAddrInUse(t *testing.T) {
	ft := &fakeTransport{connErrs: []error{nerr.AddrInUse}}
	ft.CfgTimeoutRxQSet(1, 250*time.Millisecond)

	cfg := RetryConfig{RetryMax: 2, TimeoutMs: 500, DlyMs: 100}
	start := time.Now()
	err := SockConn(context.Background(), ft, 1, &net.TCPAddr{}, cfg)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("SockConn: %v", err)
	}
	if ft.connAttempts != 2 {
		t.Fatalf("connAttempts = %d, want 2", ft.connAttempts)
	}
	if elapsed < 100*time.Millisecond {
		t.Errorf("elapsed = %v, want >= 100ms between attempts", elapsed)
	}
	if ft.timeout != 250*time.Millisecond {
		t.Errorf("timeout restored to %v, want 250ms", ft.timeout)
	}
}

// TestSockConnStopsOnInvalidArg verifies a non-transitory error aborts the
// loop immediately rather than retrying.
func TestSockConnStopsOnInvalidArg(t *testing.T) {
	ft := &fakeTransport{connErrs: []error{nerr.InvalidArg, nil}}
	cfg := RetryConfig{RetryMax: 2, TimeoutMs: 100, DlyMs: 10}
	err := SockConn(context.Background(), ft, 1, &net.TCPAddr{}, cfg)
	if err != nerr.InvalidArg {
		t.Fatalf("err = %v, want InvalidArg", err)
	}
	if ft.connAttempts != 1 {
		t.Fatalf("connAttempts = %d, want 1 (no retry on invalid-arg)", ft.connAttempts)
	}
}

// TestSockConnExhaustsRetryBudget verifies a persistently transitory error
// stops after RetryMax retries and surfaces the last error.
func TestSockConnExhaustsRetryBudget(t *testing.T) {
	ft := &fakeTransport{connErrs: []error{nerr.AddrInUse, nerr.AddrInUse, nerr.AddrInUse}}
	cfg := RetryConfig{RetryMax: 2, TimeoutMs: 10, DlyMs: 5}
	err := SockConn(context.Background(), ft, 1, &net.TCPAddr{}, cfg)
	if err != nerr.AddrInUse {
		t.Fatalf("err = %v, want AddrInUse", err)
	}
	if ft.connAttempts != 3 {
		t.Fatalf("connAttempts = %d, want 3 (1 initial + 2 retries)", ft.connAttempts)
	}
}
