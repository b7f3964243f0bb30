package ascii

import (
	"net"
	"strings"

	"netstack/internal/nerr"
)

// StrToIP dispatches to StrToIPv4 or StrToIPv6 based on the string's shape:
// a colon anywhere in the string selects IPv6, otherwise IPv4. The literal
// "localhost" is accepted directly as the IPv4 loopback without going
// through either numeric parser.
func StrToIP(s string) (net.IP, error) {
	switch s {
	case "localhost":
		return net.IPv4(127, 0, 0, 1), nil
	}

	if strings.Contains(s, ":") {
		addr, err := StrToIPv6(s)
		if err != nil {
			return nil, err
		}
		return net.IP(addr[:]), nil
	}

	addr, err := StrToIPv4(s)
	if err != nil {
		return nil, err
	}
	return net.IPv4(addr[0], addr[1], addr[2], addr[3]), nil
}

// IPToStr formats an address in the form matching its family, erroring if
// ip is neither a valid IPv4 nor IPv6 address.
func IPToStr(ip net.IP) (string, error) {
	if v4 := ip.To4(); v4 != nil {
		return IPv4ToStr([4]byte{v4[0], v4[1], v4[2], v4[3]}, false), nil
	}
	if v6 := ip.To16(); v6 != nil {
		var addr [16]byte
		copy(addr[:], v6)
		return IPv6ToStr(addr), nil
	}
	return "", nerr.InvalidAddrLen
}
