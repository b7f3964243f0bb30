package resolve

import (
	"context"
	"net"
	"strconv"

	"netstack/internal/contract"
)

// Hints mirrors struct addrinfo's input fields: the caller's constraints on
// the records getaddrinfo is allowed to return.
type Hints struct {
	Family   int // AFUnspec, AFInet, or AFInet6
	SockType int // SockUnspec, SockStream, or SockDgram
	Protocol Protocol
	Flags    int // OR of AIPassive, AICanonName, AINumericHost, AINumericServ, AIAddrConfig
}

// Resolver implements getaddrinfo/getnameinfo against a bounded AddrInfo
// pool and an optional DNS collaborator for names that aren't literal IPs.
type Resolver struct {
	pool *addrInfoPool
	dns  contract.DNSClient
}

// NewResolver builds a Resolver whose AddrInfo pool holds at most
// addrInfoMax live nodes at a time, backed by dns for non-literal lookups.
func NewResolver(addrInfoMax int, dns contract.DNSClient) *Resolver {
	return &Resolver{pool: newAddrInfoPool(addrInfoMax), dns: dns}
}

// Free returns a chain previously returned by GetAddrInfo to the pool.
func (r *Resolver) Free(head *AddrInfo) {
	r.pool.freeChain(head)
}

// GetAddrInfo resolves node/service into a chain of AddrInfo records. Either
// node or service may be empty but not both. On any error the partial chain
// already allocated is freed before returning.
func (r *Resolver) GetAddrInfo(ctx context.Context, node, service string, hints Hints) (*AddrInfo, EAICode) {
	if hints.Flags&^aiFlagsMask != 0 {
		return nil, EAIBadFlags
	}
	if node == "" && service == "" {
		return nil, EAINoName
	}
	if hints.Family != AFUnspec && hints.Family != AFInet && hints.Family != AFInet6 {
		return nil, EAIFamily
	}
	if hints.SockType != SockUnspec && hints.SockType != SockStream && hints.SockType != SockDgram {
		return nil, EAISockType
	}

	port, proto, code := r.resolveService(service, hints)
	if code != 0 {
		return nil, code
	}

	families := familiesFor(hints.Family)

	if node == "" {
		return r.wildcardOrLoopback(families, hints, port, proto)
	}

	if ip := net.ParseIP(node); ip != nil {
		return r.literalIP(ip, families, hints, port, proto, node)
	}

	if hints.Flags&AINumericHost != 0 {
		return nil, EAINoName
	}

	return r.lookupDNS(ctx, node, families, hints, port, proto)
}

// resolveService maps a service name or decimal port string to a port
// number and protocol, applying hint/service/none tie-breaking in that
// order of precedence.
func (r *Resolver) resolveService(service string, hints Hints) (uint16, Protocol, EAICode) {
	if service == "" {
		return 0, protoFromHints(hints, ProtoNone), 0
	}

	if n, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(n), protoFromHints(hints, ProtoNone), 0
	}

	entry, ok := services[service]
	if !ok {
		return 0, 0, EAIService
	}
	if hints.SockType != SockUnspec && !protoCompatible(entry.proto, hints.SockType) {
		return 0, 0, EAIService
	}
	return entry.port, protoFromHints(hints, entry.proto), 0
}

// protoFromHints picks the winning protocol: the hint's explicit protocol
// if given, else the service dictionary's hint, else fall.
func protoFromHints(hints Hints, fall Protocol) Protocol {
	if hints.Protocol != ProtoNone {
		return hints.Protocol
	}
	return fall
}

func protoCompatible(p Protocol, sockType int) bool {
	switch sockType {
	case SockStream:
		return p == ProtoTCP || p == ProtoUDPTCP || p == ProtoTCPUDP
	case SockDgram:
		return p == ProtoUDP || p == ProtoUDPTCP || p == ProtoTCPUDP
	default:
		return true
	}
}

func familiesFor(family int) []int {
	if family == AFUnspec {
		return []int{AFInet6, AFInet}
	}
	return []int{family}
}

func sockTypeFor(hints Hints) int {
	if hints.SockType != SockUnspec {
		return hints.SockType
	}
	return SockStream
}

// wildcardOrLoopback builds the node-absent result: one record per enabled
// family, IN6ADDR_ANY/INADDR_ANY if AIPassive is set, else the loopback
// address, each bound to port.
func (r *Resolver) wildcardOrLoopback(families []int, hints Hints, port uint16, proto Protocol) (*AddrInfo, EAICode) {
	passive := hints.Flags&AIPassive != 0
	sockType := sockTypeFor(hints)

	var head, tail *AddrInfo
	for _, fam := range families {
		ai, ok := r.pool.get()
		if !ok {
			r.pool.freeChain(head)
			return nil, EAIMemory
		}
		ai.Family = fam
		ai.SockType = sockType
		ai.Protocol = proto
		ai.Port = port
		if fam == AFInet6 {
			if passive {
				ai.Addr = net.IPv6unspecified
			} else {
				ai.Addr = net.IPv6loopback
			}
		} else {
			if passive {
				ai.Addr = net.IPv4(0, 0, 0, 0)
			} else {
				ai.Addr = net.IPv4(127, 0, 0, 1)
			}
		}
		if head == nil {
			head, tail = ai, ai
		} else {
			tail.Next = ai
			tail = ai
		}
	}
	return head, 0
}

// literalIP builds the single-record result for a node that parses as an IP
// literal, rejecting it if its family isn't among the enabled families.
func (r *Resolver) literalIP(ip net.IP, families []int, hints Hints, port uint16, proto Protocol, node string) (*AddrInfo, EAICode) {
	fam := AFInet
	addr := ip.To4()
	if addr == nil {
		fam = AFInet6
		addr = ip.To16()
	}

	enabled := false
	for _, f := range families {
		if f == fam {
			enabled = true
			break
		}
	}
	if !enabled {
		return nil, EAIAddrFamily
	}

	ai, ok := r.pool.get()
	if !ok {
		return nil, EAIMemory
	}
	ai.Family = fam
	ai.SockType = sockTypeFor(hints)
	ai.Protocol = proto
	ai.Port = port
	ai.Addr = addr
	if hints.Flags&AICanonName != 0 {
		ai.CanonName = node
	}
	return ai, 0
}

// lookupDNS resolves node through the DNS collaborator, bounded by the pool
// size, and builds one record per returned address.
func (r *Resolver) lookupDNS(ctx context.Context, node string, families []int, hints Hints, port uint16, proto Protocol) (*AddrInfo, EAICode) {
	if r.dns == nil {
		return nil, EAIFail
	}

	var flags contract.DNSFlags
	switch {
	case len(families) == 1 && families[0] == AFInet:
		flags |= contract.DNSFlagIPv4Only
	case len(families) == 1 && families[0] == AFInet6:
		flags |= contract.DNSFlagIPv6Only
	}
	if hints.Flags&AICanonName != 0 {
		flags |= contract.DNSFlagCanon
	}

	addrTbl := make([]net.IP, r.poolCapacityHint())
	n, canon, result, err := r.dns.GetHost(ctx, node, flags, addrTbl)
	if err != nil || result != contract.DNSResolved {
		return nil, EAIAgain
	}

	var head, tail *AddrInfo
	sockType := sockTypeFor(hints)
	for i := 0; i < n; i++ {
		ip := addrTbl[i]
		fam := AFInet6
		a := ip.To4()
		if a != nil {
			fam = AFInet
		} else {
			a = ip.To16()
		}

		found := false
		for _, f := range families {
			if f == fam {
				found = true
				break
			}
		}
		if !found {
			continue
		}

		ai, ok := r.pool.get()
		if !ok {
			r.pool.freeChain(head)
			return nil, EAIMemory
		}
		ai.Family = fam
		ai.SockType = sockType
		ai.Protocol = proto
		ai.Port = port
		ai.Addr = a
		if hints.Flags&AICanonName != 0 {
			ai.CanonName = canon
		}
		if head == nil {
			head, tail = ai, ai
		} else {
			tail.Next = ai
			tail = ai
		}
	}

	if head == nil {
		return nil, EAINoName
	}
	return head, 0
}

// poolCapacityHint bounds how many addresses a single DNS lookup may
// return, matching the pool's own ceiling so one name can't exhaust it.
func (r *Resolver) poolCapacityHint() int {
	if r.pool.max <= 0 {
		return 1
	}
	return r.pool.max
}
