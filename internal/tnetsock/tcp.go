package tnetsock

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/xtaci/smux"

	"netstack/internal/conf"
	"netstack/internal/contract"
	"netstack/internal/flog"
	"netstack/internal/nerr"
)

// smuxConfig builds a smux.Config from the transport's SMUX section.
func smuxConfig(cfg conf.SMUX) *smux.Config {
	c := smux.DefaultConfig()
	c.Version = cfg.Version
	c.MaxFrameSize = cfg.MaxFrameSize
	c.MaxReceiveBuffer = cfg.MaxReceiveBuffer
	c.MaxStreamBuffer = cfg.MaxStreamBuffer
	c.KeepAliveInterval = time.Duration(cfg.KeepAliveInterval) * time.Second
	c.KeepAliveTimeout = time.Duration(cfg.KeepAliveTimeout) * time.Second
	return c
}

// configureTCPConn applies the transport's connection-level tuning to a raw
// TCP connection: no-delay, keepalive, then buffer sizes.
func configureTCPConn(conn *net.TCPConn, cfg conf.Transport) error {
	if cfg.NoDelay {
		if err := conn.SetNoDelay(true); err != nil {
			return err
		}
	}
	if cfg.KeepAlive {
		if err := conn.SetKeepAlive(true); err != nil {
			return err
		}
		if err := conn.SetKeepAlivePeriod(time.Duration(cfg.KeepAlivePeriod) * time.Second); err != nil {
			return err
		}
	}
	if cfg.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(cfg.ReadBufferSize); err != nil {
			return err
		}
	}
	if cfg.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(cfg.WriteBufferSize); err != nil {
			return err
		}
	}
	return nil
}

type tcpEntry struct {
	cfg conf.Transport

	boundAddr *net.TCPAddr
	ln        *net.TCPListener

	conn   *net.TCPConn
	sess   *smux.Session
	stream *smux.Stream

	rxTimeout, txTimeout          time.Duration
	connReqTimeout, acceptTimeout time.Duration
	blocking                      bool

	shutRd, shutWr bool
}

func (e *tcpEntry) isConnected() bool { return e.stream != nil }

// TCP implements contract.TransportSocket over net.TCPConn plus a
// github.com/xtaci/smux session, giving the BSD stream-socket facade real
// multiplexed, FIFO-ordered stream semantics instead of a bare net.Conn.
type TCP struct {
	cfg   conf.Transport
	table *handleTable[tcpEntry]
}

func NewTCP(cfg conf.Transport) *TCP {
	return &TCP{cfg: cfg, table: newHandleTable[tcpEntry]()}
}

var _ contract.TransportSocket = (*TCP)(nil)

func (t *TCP) Open(ctx context.Context, family, sockType int) (contract.Handle, error) {
	if sockType != contract.SockStream {
		return 0, nerr.InvalidArg
	}
	e := &tcpEntry{cfg: t.cfg, blocking: true}
	return t.table.alloc(e), nil
}

func (t *TCP) Close(h contract.Handle) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	t.table.delete(h)
	if e.stream != nil {
		e.stream.Close()
	}
	if e.sess != nil {
		e.sess.Close()
	}
	if e.conn != nil {
		e.conn.Close()
	}
	if e.ln != nil {
		e.ln.Close()
	}
	return nil
}

func (t *TCP) Bind(h contract.Handle, addr net.Addr) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return nerr.InvalidAddrFamily
	}
	e.boundAddr = tcpAddr
	return nil
}

func (t *TCP) Conn(ctx context.Context, h contract.Handle, addr net.Addr) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	if e.isConnected() {
		return nerr.InUse
	}

	dialer := &net.Dialer{}
	if e.boundAddr != nil {
		dialer.LocalAddr = e.boundAddr
	}
	if e.connReqTimeout > 0 {
		dialer.Timeout = e.connReqTimeout
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr.String())
	if err != nil {
		flog.Errorf("tnetsock tcp: dial %s: %v", addr, err)
		return nerr.ConnFail
	}
	tcpConn := conn.(*net.TCPConn)
	if err := configureTCPConn(tcpConn, e.cfg); err != nil {
		tcpConn.Close()
		return nerr.FaultUnknown
	}

	sess, err := smux.Client(tcpConn, smuxConfig(e.cfg.SMUX))
	if err != nil {
		tcpConn.Close()
		return nerr.FaultUnknown
	}
	stream, err := sess.OpenStream()
	if err != nil {
		sess.Close()
		return nerr.ConnFail
	}

	e.conn, e.sess, e.stream = tcpConn, sess, stream
	return nil
}

func (t *TCP) Listen(h contract.Handle, backlog int) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	if e.boundAddr == nil {
		return nerr.InvalidOp
	}
	// backlog is accepted for interface parity with a BSD listen() call, but
	// the stdlib's net.ListenTCP exposes no way to size it beyond the OS
	// default.
	ln, err := net.ListenTCP("tcp", e.boundAddr)
	if err != nil {
		flog.Errorf("tnetsock tcp: listen %s: %v", e.boundAddr, err)
		return nerr.AddrInUse
	}
	e.ln = ln
	return nil
}

func (t *TCP) Accept(ctx context.Context, h contract.Handle) (contract.Handle, net.Addr, error) {
	e, ok := t.table.get(h)
	if !ok || e.ln == nil {
		return 0, nil, nerr.InvalidOp
	}
	if deadline, set := ctx.Deadline(); set {
		e.ln.SetDeadline(deadline)
	} else if e.acceptTimeout > 0 {
		e.ln.SetDeadline(time.Now().Add(e.acceptTimeout))
	} else {
		e.ln.SetDeadline(time.Time{})
	}

	conn, err := e.ln.AcceptTCP()
	if err != nil {
		return 0, nil, nerr.ConnFail
	}
	if err := configureTCPConn(conn, e.cfg); err != nil {
		conn.Close()
		return 0, nil, nerr.FaultUnknown
	}

	sess, err := smux.Server(conn, smuxConfig(e.cfg.SMUX))
	if err != nil {
		conn.Close()
		return 0, nil, nerr.FaultUnknown
	}
	stream, err := sess.AcceptStream()
	if err != nil {
		sess.Close()
		return 0, nil, nerr.ConnFail
	}

	ne := &tcpEntry{cfg: e.cfg, conn: conn, sess: sess, stream: stream, blocking: true}
	return t.table.alloc(ne), conn.RemoteAddr(), nil
}

func (t *TCP) RxData(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	e, ok := t.table.get(h)
	if !ok || !e.isConnected() {
		return 0, nerr.InvalidOp
	}
	if e.shutRd {
		return 0, nerr.Closed
	}
	if err := e.stream.SetReadDeadline(rxDeadline(ctx, e)); err != nil {
		return 0, nerr.FaultUnknown
	}
	n, err := e.stream.Read(buf)
	if err != nil {
		return n, classifyIOErr(err, false)
	}
	return n, nil
}

func (t *TCP) RxDataFrom(ctx context.Context, h contract.Handle, buf []byte) (int, net.Addr, error) {
	return 0, nil, nerr.InvalidOp
}

func (t *TCP) TxData(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	e, ok := t.table.get(h)
	if !ok || !e.isConnected() {
		return 0, nerr.InvalidOp
	}
	if e.shutWr {
		return 0, nerr.Closed
	}
	if err := e.stream.SetWriteDeadline(txDeadline(ctx, e)); err != nil {
		return 0, nerr.FaultUnknown
	}
	n, err := e.stream.Write(buf)
	if err != nil {
		return n, classifyIOErr(err, true)
	}
	return n, nil
}

func (t *TCP) TxDataTo(ctx context.Context, h contract.Handle, buf []byte, addr net.Addr) (int, error) {
	return 0, nerr.InvalidOp
}

func (t *TCP) CfgTimeoutRxQSet(h contract.Handle, d time.Duration) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.rxTimeout = d
	return nil
}

func (t *TCP) CfgTimeoutRxQGet(h contract.Handle) (time.Duration, error) {
	e, ok := t.table.get(h)
	if !ok {
		return 0, nerr.InvalidArg
	}
	return e.rxTimeout, nil
}

func (t *TCP) CfgTimeoutTxQSet(h contract.Handle, d time.Duration) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.txTimeout = d
	return nil
}

func (t *TCP) CfgTimeoutTxQGet(h contract.Handle) (time.Duration, error) {
	e, ok := t.table.get(h)
	if !ok {
		return 0, nerr.InvalidArg
	}
	return e.txTimeout, nil
}

func (t *TCP) CfgTimeoutConnReqSet(h contract.Handle, d time.Duration) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.connReqTimeout = d
	return nil
}

func (t *TCP) CfgTimeoutConnAcceptSet(h contract.Handle, d time.Duration) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.acceptTimeout = d
	return nil
}

func (t *TCP) CfgBlock(h contract.Handle, blocking bool) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.blocking = blocking
	return nil
}

func (t *TCP) BlockGet(h contract.Handle) (bool, error) {
	e, ok := t.table.get(h)
	if !ok {
		return false, nerr.InvalidArg
	}
	return e.blocking, nil
}

func (t *TCP) LocalAddr(h contract.Handle) (net.Addr, error) {
	e, ok := t.table.get(h)
	if !ok {
		return nil, nerr.InvalidArg
	}
	if e.conn != nil {
		return e.conn.LocalAddr(), nil
	}
	if e.ln != nil {
		return e.ln.Addr(), nil
	}
	return nil, nerr.InvalidOp
}

func (t *TCP) RemoteAddr(h contract.Handle) (net.Addr, error) {
	e, ok := t.table.get(h)
	if !ok {
		return nil, nerr.InvalidArg
	}
	if e.conn == nil {
		return nil, nerr.InvalidOp
	}
	return e.conn.RemoteAddr(), nil
}

func (t *TCP) IsConn(h contract.Handle) bool {
	e, ok := t.table.get(h)
	return ok && e.isConnected()
}

func (t *TCP) Shutdown(h contract.Handle, mode contract.ShutdownMode) error {
	e, ok := t.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	if !e.isConnected() {
		return nerr.InvalidOp
	}
	switch mode {
	case contract.ShutRd:
		e.shutRd = true
	case contract.ShutWr:
		e.shutWr = true
	case contract.ShutRdWr:
		e.shutRd, e.shutWr = true, true
		return e.stream.Close()
	default:
		return nerr.InvalidArg
	}
	return nil
}

func rxDeadline(ctx context.Context, e *tcpEntry) time.Time {
	if deadline, set := ctx.Deadline(); set {
		return deadline
	}
	if !e.blocking {
		return time.Now()
	}
	if e.rxTimeout > 0 {
		return time.Now().Add(e.rxTimeout)
	}
	return time.Time{}
}

func txDeadline(ctx context.Context, e *tcpEntry) time.Time {
	if deadline, set := ctx.Deadline(); set {
		return deadline
	}
	if !e.blocking {
		return time.Now()
	}
	if e.txTimeout > 0 {
		return time.Now().Add(e.txTimeout)
	}
	return time.Time{}
}

func classifyIOErr(err error, isWrite bool) error {
	if ne, ok := err.(net.Error); ok && ne.Timeout() {
		return nerr.TxBufNoneAvail
	}
	if errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.EOF) {
		return nerr.Closed
	}
	if isWrite {
		return nerr.Tx
	}
	return nerr.Rx
}
