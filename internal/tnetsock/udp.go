package tnetsock

import (
	"context"
	"errors"
	"net"
	"time"

	"netstack/internal/contract"
	"netstack/internal/flog"
	"netstack/internal/nerr"
)

type udpEntry struct {
	boundAddr  *net.UDPAddr
	remoteAddr *net.UDPAddr
	conn       *net.UDPConn

	rxTimeout, txTimeout time.Duration
	blocking             bool
}

// UDP implements contract.TransportSocket over a plain net.UDPConn, giving
// the facade non-blocking-send datagram semantics without any multiplexing
// layer in between.
type UDP struct {
	table *handleTable[udpEntry]
}

func NewUDP() *UDP {
	return &UDP{table: newHandleTable[udpEntry]()}
}

var _ contract.TransportSocket = (*UDP)(nil)

func (u *UDP) Open(ctx context.Context, family, sockType int) (contract.Handle, error) {
	if sockType != contract.SockDgram {
		return 0, nerr.InvalidArg
	}
	return u.table.alloc(&udpEntry{blocking: true}), nil
}

func (u *UDP) Close(h contract.Handle) error {
	e, ok := u.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	u.table.delete(h)
	if e.conn != nil {
		e.conn.Close()
	}
	return nil
}

func (u *UDP) Bind(h contract.Handle, addr net.Addr) error {
	e, ok := u.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	if e.conn != nil {
		return nerr.InUse
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return nerr.InvalidAddrFamily
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		flog.Errorf("tnetsock udp: bind %s: %v", udpAddr, err)
		return nerr.AddrInUse
	}
	e.boundAddr = udpAddr
	e.conn = conn
	return nil
}

// Conn fixes the peer a datagram socket's TxData/RxData talk to, the way
// connect(2) does for UDP: it narrows delivery to one peer without opening a
// stream.
func (u *UDP) Conn(ctx context.Context, h contract.Handle, addr net.Addr) error {
	e, ok := u.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return nerr.InvalidAddrFamily
	}
	laddr := e.boundAddr
	if e.conn != nil {
		// Re-open the socket connected to the peer on the same local address.
		laddr = e.conn.LocalAddr().(*net.UDPAddr)
		e.conn.Close()
		e.conn = nil
	}
	conn, err := net.DialUDP("udp", laddr, udpAddr)
	if err != nil {
		flog.Errorf("tnetsock udp: connect %s: %v", udpAddr, err)
		return nerr.ConnFail
	}
	e.conn = conn
	e.remoteAddr = udpAddr
	return nil
}

func (u *UDP) Listen(h contract.Handle, backlog int) error {
	return nerr.InvalidOp
}

func (u *UDP) Accept(ctx context.Context, h contract.Handle) (contract.Handle, net.Addr, error) {
	return 0, nil, nerr.InvalidOp
}

func (u *UDP) RxData(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	e, ok := u.table.get(h)
	if !ok || e.conn == nil {
		return 0, nerr.InvalidOp
	}
	if e.remoteAddr == nil {
		return 0, nerr.InvalidOp
	}
	if err := e.conn.SetReadDeadline(rxDeadlineUDP(ctx, e)); err != nil {
		return 0, nerr.FaultUnknown
	}
	n, err := e.conn.Read(buf)
	if err != nil {
		return n, classifyUDPErr(err, false)
	}
	return n, nil
}

func (u *UDP) RxDataFrom(ctx context.Context, h contract.Handle, buf []byte) (int, net.Addr, error) {
	e, ok := u.table.get(h)
	if !ok || e.conn == nil {
		return 0, nil, nerr.InvalidOp
	}
	if err := e.conn.SetReadDeadline(rxDeadlineUDP(ctx, e)); err != nil {
		return 0, nil, nerr.FaultUnknown
	}
	n, from, err := e.conn.ReadFrom(buf)
	if err != nil {
		return n, from, classifyUDPErr(err, false)
	}
	return n, from, nil
}

func (u *UDP) TxData(ctx context.Context, h contract.Handle, buf []byte) (int, error) {
	e, ok := u.table.get(h)
	if !ok || e.conn == nil || e.remoteAddr == nil {
		return 0, nerr.InvalidOp
	}
	if err := e.conn.SetWriteDeadline(txDeadlineUDP(ctx, e)); err != nil {
		return 0, nerr.FaultUnknown
	}
	n, err := e.conn.Write(buf)
	if err != nil {
		return n, classifyUDPErr(err, true)
	}
	return n, nil
}

func (u *UDP) TxDataTo(ctx context.Context, h contract.Handle, buf []byte, addr net.Addr) (int, error) {
	e, ok := u.table.get(h)
	if !ok {
		return 0, nerr.InvalidOp
	}
	if e.conn == nil {
		conn, err := net.ListenUDP("udp", e.boundAddr)
		if err != nil {
			return 0, nerr.FaultUnknown
		}
		e.conn = conn
	}
	udpAddr, ok := addr.(*net.UDPAddr)
	if !ok {
		return 0, nerr.InvalidAddrFamily
	}
	if err := e.conn.SetWriteDeadline(txDeadlineUDP(ctx, e)); err != nil {
		return 0, nerr.FaultUnknown
	}
	n, err := e.conn.WriteToUDP(buf, udpAddr)
	if err != nil {
		return n, classifyUDPErr(err, true)
	}
	return n, nil
}

func (u *UDP) CfgTimeoutRxQSet(h contract.Handle, d time.Duration) error {
	e, ok := u.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.rxTimeout = d
	return nil
}

func (u *UDP) CfgTimeoutRxQGet(h contract.Handle) (time.Duration, error) {
	e, ok := u.table.get(h)
	if !ok {
		return 0, nerr.InvalidArg
	}
	return e.rxTimeout, nil
}

// CfgTimeoutTxQSet is not available on a datagram socket: there is no send
// queue to time out on a connectionless transport, so it returns
// nerr.InvalidOp for a known handle (nerr.InvalidArg for an unknown one).
func (u *UDP) CfgTimeoutTxQSet(h contract.Handle, d time.Duration) error {
	if _, ok := u.table.get(h); !ok {
		return nerr.InvalidArg
	}
	return nerr.InvalidOp
}

func (u *UDP) CfgTimeoutTxQGet(h contract.Handle) (time.Duration, error) {
	e, ok := u.table.get(h)
	if !ok {
		return 0, nerr.InvalidArg
	}
	return e.txTimeout, nil
}

// CfgTimeoutConnReqSet and CfgTimeoutConnAcceptSet are connection-oriented
// knobs a datagram socket has no use for; surfacing ErrInvalidOp here rather
// than silently succeeding matches the resolution picked for the analogous
// CfgTimeoutTxQ_Set-on-datagram question.
func (u *UDP) CfgTimeoutConnReqSet(h contract.Handle, d time.Duration) error {
	return nerr.InvalidOp
}

func (u *UDP) CfgTimeoutConnAcceptSet(h contract.Handle, d time.Duration) error {
	return nerr.InvalidOp
}

func (u *UDP) CfgBlock(h contract.Handle, blocking bool) error {
	e, ok := u.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	e.blocking = blocking
	return nil
}

func (u *UDP) BlockGet(h contract.Handle) (bool, error) {
	e, ok := u.table.get(h)
	if !ok {
		return false, nerr.InvalidArg
	}
	return e.blocking, nil
}

func (u *UDP) LocalAddr(h contract.Handle) (net.Addr, error) {
	e, ok := u.table.get(h)
	if !ok || e.conn == nil {
		return nil, nerr.InvalidOp
	}
	return e.conn.LocalAddr(), nil
}

func (u *UDP) RemoteAddr(h contract.Handle) (net.Addr, error) {
	e, ok := u.table.get(h)
	if !ok || e.remoteAddr == nil {
		return nil, nerr.InvalidOp
	}
	return e.remoteAddr, nil
}

func (u *UDP) IsConn(h contract.Handle) bool {
	e, ok := u.table.get(h)
	return ok && e.remoteAddr != nil
}

// Shutdown on a datagram socket only ever clears the fixed peer set by Conn;
// there's no stream to half-close.
func (u *UDP) Shutdown(h contract.Handle, mode contract.ShutdownMode) error {
	e, ok := u.table.get(h)
	if !ok {
		return nerr.InvalidArg
	}
	if mode == contract.ShutRdWr {
		e.remoteAddr = nil
	}
	return nil
}

func rxDeadlineUDP(ctx context.Context, e *udpEntry) time.Time {
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

func txDeadlineUDP(ctx context.Context, e *udpEntry) time.Time {
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

func classifyUDPErr(err error, isWrite bool) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return nerr.TxBufNoneAvail
	}
	if errors.Is(err, net.ErrClosed) {
		return nerr.Closed
	}
	if isWrite {
		return nerr.Tx
	}
	return nerr.Rx
}
