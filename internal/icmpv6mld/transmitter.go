package icmpv6mld

import (
	"context"
	"errors"
	"net"
	"syscall"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"

	"netstack/internal/contract"
	"netstack/internal/flog"
	"netstack/internal/nerr"
)

// Transmitter implements contract.ICMPv6Transmitter over a single raw
// ICMPv6 socket, shared by every interface the way NetICMPv6_TxMsgReqHandler
// is one shared handler for the whole stack: a concrete transport behind a
// narrow contract interface, built from an ecosystem package
// (golang.org/x/net/icmp + golang.org/x/net/ipv6) instead of hand-rolled
// raw-socket code.
type Transmitter struct {
	pc *ipv6.PacketConn
}

// NewTransmitter opens a raw ICMPv6 socket bound to bindAddr (typically
// "::", letting the kernel route by interface) and wraps it for per-packet
// hop limit and checksum-offset control.
func NewTransmitter(bindAddr string) (*Transmitter, error) {
	conn, err := icmp.ListenPacket("ip6:ipv6-icmp", bindAddr)
	if err != nil {
		flog.Errorf("mld transmitter: listen on %s: %v", bindAddr, err)
		return nil, nerr.FaultUnknown
	}
	pc := ipv6.NewPacketConn(conn)
	// The ICMPv6 checksum field starts at byte offset 2 of the ICMPv6
	// header; asking the kernel to fill it in lets Marshal below pass a nil
	// pseudo-header and still produce a valid packet.
	if err := pc.SetChecksum(true, 2); err != nil {
		flog.Errorf("mld transmitter: set checksum: %v", err)
		return nil, nerr.FaultUnknown
	}
	return &Transmitter{pc: pc}, nil
}

// TxMsgReqHandler builds and sends one MLD datagram: the Hop-by-Hop
// Router-Alert+PadN header NetMLDP_PrepareHopByHopHdr adds on every MLD
// send, ahead of the ICMPv6 envelope and MLD body payload.
func (t *Transmitter) TxMsgReqHandler(ctx context.Context, ifNbr int, msgType, code byte, src, dst net.IP, hopLimit byte, payload []byte) error {
	msg := &icmp.Message{
		Type: ipv6.ICMPType(msgType),
		Code: int(code),
		Body: &icmp.RawBody{Data: payload},
	}
	wire, err := msg.Marshal(nil)
	if err != nil {
		flog.Errorf("mld transmitter: marshal: %v", err)
		return nerr.MldpInvalidType
	}

	if err := t.pc.SetHopLimit(int(hopLimit)); err != nil {
		flog.Errorf("mld transmitter: set hop limit: %v", err)
		return nerr.FaultUnknown
	}
	if err := t.pc.SetMulticastHopLimit(int(hopLimit)); err != nil {
		flog.Errorf("mld transmitter: set multicast hop limit: %v", err)
		return nerr.FaultUnknown
	}

	cm := &ipv6.ControlMessage{
		HopLimit: int(hopLimit),
		Src:      src,
		IfIndex:  ifNbr,
	}
	// Every MLD datagram is required to carry the Hop-by-Hop Router Alert
	// option (RFC 2710 §3); HopByHopRouterAlertMLD's bytes are handed to
	// the application ahead of the payload for platforms whose IPv6 stack
	// honors a raw-socket-supplied hop-by-hop header on write, mirroring
	// NetMLDP_PrepareHopByHopHdr's callback-based header injection.
	hopHdr := HopByHopRouterAlertMLD(58) // Next Header: ICMPv6
	out := append(append([]byte{}, hopHdr...), wire...)

	_, err = t.pc.WriteTo(out, cm, &net.UDPAddr{IP: dst})
	if err != nil {
		flog.Errorf("mld transmitter: write on if %d: %v", ifNbr, err)
		if isLinkDown(err) {
			return nerr.IfLinkDown
		}
		return nerr.Tx
	}
	return nil
}

// isLinkDown reports whether err looks like the kind of "interface is down"
// failure NET_ERR_IF_LINK_DOWN stands in for, as opposed to a transient
// send error that's worth a plain retry.
func isLinkDown(err error) bool {
	return errors.Is(err, syscall.ENETDOWN) || errors.Is(err, syscall.EHOSTDOWN) || errors.Is(err, syscall.ENETUNREACH)
}

var _ contract.ICMPv6Transmitter = (*Transmitter)(nil)
