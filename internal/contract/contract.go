// Package contract declares the collaborator interfaces this module
// consumes from the surrounding network stack: the interface manager, the
// IPv6/ICMPv6 helpers, the transport-socket primitives, and the DNS
// client. These are the out-of-scope pieces (Ethernet BSP, IP datagram
// builder, interface manager, ARP/TCP state machines, DNS internals) that
// a full network stack would own — this package only types their contract
// so the timer/MLDP/socket packages have something concrete to depend on
// and test against.
package contract

import (
	"context"
	"net"
	"time"
)

// LinkState mirrors NET_IF_LINK_STATE.
type LinkState int

const (
	LinkDown LinkState = iota
	LinkUp
)

// LinkStateHandler is the callback contract IfaceManager notifies on link
// transitions: (if_nbr, state).
type LinkStateHandler func(ifNbr int, state LinkState)

// IfaceManager mirrors the external interface-manager contract (NetIF_*).
type IfaceManager interface {
	IsValid(ifNbr int) bool
	AddrMulticastAdd(ifNbr int, group net.IP) error
	AddrMulticastRemove(ifNbr int, group net.IP) error
	LinkLocalAddr(ifNbr int) (net.IP, bool)
	LinkStateSubscribe(ifNbr int, h LinkStateHandler) error
	LinkStateUnsubscribe(ifNbr int, h LinkStateHandler) error
}

// IPv6Helper mirrors the external IPv6 datagram-builder contract consumed by
// MLDP: address-class tests and the scope id (0..14, RFC 4291 §2.7).
type IPv6Helper interface {
	IsAddrMcast(ip net.IP) bool
	IsAddrMcastAllNodes(ip net.IP) bool
	IsAddrLinkLocal(ip net.IP) bool
	GetAddrScope(ip net.IP) int
	AddrUnspecified() net.IP
	AddrMcastAllRouters() net.IP
	GetAddrMatchingLen(a, b net.IP) int
}

// ICMPv6Transmitter mirrors NetICMPv6_TxMsgReqHandler, specialized to the
// MLD message shapes the MLDP engine ever sends (type/code/payload).
type ICMPv6Transmitter interface {
	TxMsgReqHandler(ctx context.Context, ifNbr int, msgType, code byte, src, dst net.IP, hopLimit byte, payload []byte) error
}

// Address family and socket type constants accepted by TransportSocket.Open.
const (
	FamilyIPv4 = iota
	FamilyIPv6
)

const (
	SockStream = iota
	SockDgram
)

// TransportSocket mirrors the external transport-sockets contract (the
// NetSock_* family) the BSD facade and App retry-wrappers sit above.
type TransportSocket interface {
	Open(ctx context.Context, family, sockType int) (Handle, error)
	Close(h Handle) error
	Bind(h Handle, addr net.Addr) error
	Conn(ctx context.Context, h Handle, addr net.Addr) error
	Listen(h Handle, backlog int) error
	Accept(ctx context.Context, h Handle) (Handle, net.Addr, error)
	RxData(ctx context.Context, h Handle, buf []byte) (int, error)
	RxDataFrom(ctx context.Context, h Handle, buf []byte) (int, net.Addr, error)
	TxData(ctx context.Context, h Handle, buf []byte) (int, error)
	TxDataTo(ctx context.Context, h Handle, buf []byte, addr net.Addr) (int, error)
	CfgTimeoutRxQSet(h Handle, d time.Duration) error
	CfgTimeoutRxQGet(h Handle) (time.Duration, error)
	CfgTimeoutTxQSet(h Handle, d time.Duration) error
	CfgTimeoutTxQGet(h Handle) (time.Duration, error)
	CfgTimeoutConnReqSet(h Handle, d time.Duration) error
	CfgTimeoutConnAcceptSet(h Handle, d time.Duration) error
	CfgBlock(h Handle, blocking bool) error
	BlockGet(h Handle) (bool, error)
	LocalAddr(h Handle) (net.Addr, error)
	RemoteAddr(h Handle) (net.Addr, error)
	IsConn(h Handle) bool
	Shutdown(h Handle, mode ShutdownMode) error
}

// Handle is an opaque transport-socket identifier. Retry-wrapper functions
// treat it as a plain value rather than a pointer or file descriptor.
type Handle int

// ShutdownMode mirrors the legal shutdown-mode transitions:
// None->Rd, None->Wr, None->RdWr, Rd->RdWr, Wr->RdWr.
type ShutdownMode int

const (
	ShutNone ShutdownMode = iota
	ShutRd
	ShutWr
	ShutRdWr
)

// DNSResult mirrors the {Resolved, Pending, Failed, Unknown, None} status
// family GetHost returns.
type DNSResult int

const (
	DNSNone DNSResult = iota
	DNSResolved
	DNSPending
	DNSFailed
	DNSUnknown
)

// DNSFlags mirrors GetHost's flag bits.
type DNSFlags int

const (
	DNSFlagIPv4Only DNSFlags = 1 << iota
	DNSFlagIPv6Only
	DNSFlagReverseLookup
	DNSFlagForceResolution
	DNSFlagCanon
)

// DNSClient mirrors the optional DNS-client collaborator contract.
type DNSClient interface {
	// GetHost resolves name into up to len(addrTbl) addresses, returning the
	// count actually filled plus an optional canonical name.
	GetHost(ctx context.Context, name string, flags DNSFlags, addrTbl []net.IP) (n int, canon string, result DNSResult, err error)
	// Reverse performs a reverse (PTR) lookup of ip, honoring
	// DNSFlagReverseLookup semantics.
	Reverse(ctx context.Context, ip net.IP) (host string, result DNSResult, err error)
}
