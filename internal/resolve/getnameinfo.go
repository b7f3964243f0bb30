package resolve

import (
	"context"
	"net"
	"strconv"
	"strings"

	"netstack/internal/contract"
)

// GetNameInfo is getaddrinfo's inverse: given an address and port, it
// produces a host string and a service string.
func (r *Resolver) GetNameInfo(ctx context.Context, addr net.IP, port uint16, sockType int, flags int) (host, service string, code EAICode) {
	host, code = r.resolveHost(ctx, addr, flags)
	if code != 0 {
		return "", "", code
	}

	service, code = r.resolveServiceName(port, sockType, flags)
	if code != 0 {
		return "", "", code
	}

	return host, service, 0
}

func (r *Resolver) resolveHost(ctx context.Context, addr net.IP, flags int) (string, EAICode) {
	if flags&NINumericHost != 0 {
		return addr.String(), 0
	}

	if r.dns == nil {
		if flags&NINameReqd != 0 {
			return "", EAIFail
		}
		return addr.String(), 0
	}

	name, result, err := r.dns.Reverse(ctx, addr)
	if err != nil || result != contract.DNSResolved || name == "" {
		if flags&NINameReqd != 0 {
			return "", EAIAgain
		}
		return addr.String(), 0
	}

	if flags&NINoFQDN != 0 {
		if i := strings.IndexByte(name, '.'); i >= 0 {
			name = name[:i]
		}
	}
	return name, 0
}

func (r *Resolver) resolveServiceName(port uint16, sockType int, flags int) (string, EAICode) {
	if flags&NINumericServ != 0 || port == 0 {
		return strconv.Itoa(int(port)), 0
	}

	name, ok := servicesByPort[port]
	if !ok {
		return strconv.Itoa(int(port)), 0
	}

	entry := services[name]
	if sockType != SockUnspec && !protoCompatible(entry.proto, sockType) {
		return strconv.Itoa(int(port)), 0
	}
	return name, 0
}
