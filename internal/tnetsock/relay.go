package tnetsock

import (
	"context"
	"io"

	"netstack/internal/contract"
	"netstack/internal/nerr"
	"netstack/internal/pkg/buffer"
)

// handleReader adapts a contract.TransportSocket handle to io.Reader so the
// buffer package's pool-backed copy loops can drive data out of it. A
// closed read side surfaces as nerr.Closed, which is translated to io.EOF —
// the signal io.CopyBuffer already knows means "stop cleanly" rather than a
// relay failure.
type handleReader struct {
	ctx  context.Context
	sock contract.TransportSocket
	h    contract.Handle
}

func (r *handleReader) Read(p []byte) (int, error) {
	n, err := r.sock.RxData(r.ctx, r.h, p)
	if err == nerr.Closed {
		return n, io.EOF
	}
	return n, err
}

// handleWriter adapts a contract.TransportSocket handle to io.Writer.
type handleWriter struct {
	ctx  context.Context
	sock contract.TransportSocket
	h    contract.Handle
}

func (w *handleWriter) Write(p []byte) (int, error) {
	return w.sock.TxData(w.ctx, w.h, p)
}

// RelayStream copies data from src to dst — both stream-socket handles on
// sock — using the general relay buffer pool, the way a BSD-facade proxy
// bridges two accepted connections together. It returns nil once src's read
// side closes; any other error aborts the relay early.
func RelayStream(ctx context.Context, sock contract.TransportSocket, dst, src contract.Handle) error {
	return buffer.CopyRelay(ctx, &handleWriter{ctx, sock, dst}, &handleReader{ctx, sock, src})
}

// RelayDgram copies data from src to dst — both datagram-socket handles on
// sock — using the UDP-sized buffer pool.
func RelayDgram(ctx context.Context, sock contract.TransportSocket, dst, src contract.Handle) error {
	return buffer.CopyU(&handleWriter{ctx, sock, dst}, &handleReader{ctx, sock, src})
}
