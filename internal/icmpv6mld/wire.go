// Package icmpv6mld implements the wire format MLDPv1 (RFC 2710) rides on:
// the MLD message body (Source/net_mldp.c's NET_MLDP_V1_HDR) and the
// Hop-by-Hop Router-Alert+PadN extension header every MLD datagram must
// carry (NetMLDP_PrepareHopByHopHdr). Marshal/unmarshal is hand-rolled —
// golang.org/x/net/icmp models the ICMPv6 envelope (type/code/checksum)
// but has no notion of the MLD-specific body, so this package supplies it
// and leaves the envelope and the IPv6 hop-by-hop machinery to
// golang.org/x/net/icmp and golang.org/x/net/ipv6 respectively.
package icmpv6mld

import (
	"encoding/binary"
	"net"

	"netstack/internal/nerr"
)

// Message types (ICMPv6 type field), per RFC 2710 §3.
const (
	MsgTypeQuery     = 130
	MsgTypeReportV1  = 131
	MsgTypeDone      = 132
)

// MsgSizeMin is the minimum MLD message body length: 2 (max response
// delay) + 2 (reserved) + 16 (multicast address) octets.
const MsgSizeMin = 20

// Msg is the 20-octet MLDv1 message body shared by Query, Report, and Done.
type Msg struct {
	MaxResponseDelayMs uint16
	McastAddr          net.IP // 16 bytes; ::  for a general query
}

// Marshal encodes m into its 20-octet wire form.
func (m Msg) Marshal() []byte {
	buf := make([]byte, MsgSizeMin)
	binary.BigEndian.PutUint16(buf[0:2], m.MaxResponseDelayMs)
	// buf[2:4] reserved, left zero.
	addr := m.McastAddr.To16()
	if addr == nil {
		addr = net.IPv6unspecified
	}
	copy(buf[4:20], addr)
	return buf
}

// Unmarshal decodes an MLD message body, failing with nerr.MldpInvalidLen
// if b is shorter than MsgSizeMin.
func Unmarshal(b []byte) (Msg, error) {
	if len(b) < MsgSizeMin {
		return Msg{}, nerr.MldpInvalidLen
	}
	return Msg{
		MaxResponseDelayMs: binary.BigEndian.Uint16(b[0:2]),
		McastAddr:          net.IP(append([]byte(nil), b[4:20]...)),
	}, nil
}

// HopByHopRouterAlertMLD builds the 8-octet Hop-by-Hop Options extension
// header every MLD datagram carries: a Router Alert option (type 5, value
// 0 = "MLD message") followed by a PadN option padding the header out to
// the RFC 2460 §4.3 8-octet multiple.
func HopByHopRouterAlertMLD(nextHeader byte) []byte {
	return []byte{
		nextHeader, // Next Header
		0,          // Hdr Ext Len: 0 means "8 octets total", per RFC 2460 §4.3
		5, 2, 0, 0, // Router Alert option: type=5, len=2, value=0 (MLD)
		1, 0, // PadN option: type=1, len=0
	}
}
