// Package resolve implements getaddrinfo/getnameinfo name resolution: BSD
// address-family and flag constants, the EAI error taxonomy, the
// well-known service dictionary, and a bounded pool of AddrInfo nodes.
package resolve

// Address families and socket types, bit-exact with their BSD <sys/socket.h>
// values where a caller might compare against a wire constant.
const (
	AFUnspec = 0
	AFInet   = 2
	AFInet6  = 10
)

const (
	SockUnspec = 0
	SockStream = 1
	SockDgram  = 2
)

// INADDR_ANY / INADDR_LOOPBACK, network byte order values.
const (
	InAddrAny      uint32 = 0x00000000
	InAddrLoopback uint32 = 0x7F000001
)

// getaddrinfo hint flags (ai_flags).
const (
	AIPassive     = 1 << 0
	AICanonName   = 1 << 1
	AINumericHost = 1 << 2
	AINumericServ = 1 << 3
	AIAddrConfig  = 1 << 5
)

const aiFlagsMask = AIPassive | AICanonName | AINumericHost | AINumericServ | AIAddrConfig

// getnameinfo flags (ni_flags).
const (
	NINameReqd    = 1 << 0
	NIDgram       = 1 << 1
	NINoFQDN      = 1 << 2
	NINumericHost = 1 << 3
	NINumericServ = 1 << 4
)

// Protocol is the per-service/per-hint transport-protocol hint.
type Protocol int

const (
	ProtoNone Protocol = iota
	ProtoUDP
	ProtoTCP
	ProtoUDPTCP // UDP preferred, TCP acceptable
	ProtoTCPUDP // TCP preferred, UDP acceptable
)

// svcEntry is one row of the well-known service dictionary.
type svcEntry struct {
	port  uint16
	proto Protocol
}

// services is the exact well-known service dictionary: name -> (port,
// protocol hint). Lookups are case-sensitive on the canonical lowercase
// name, the way /etc/services entries are conventionally written.
var services = map[string]svcEntry{
	"ftp-data": {20, ProtoTCP},
	"ftp":      {21, ProtoTCP},
	"telnet":   {23, ProtoTCP},
	"smtp":     {25, ProtoTCP},
	"dns":      {53, ProtoUDPTCP},
	"bootps":   {67, ProtoUDP},
	"bootpc":   {68, ProtoUDP},
	"tftp":     {69, ProtoUDP},
	"http":     {80, ProtoTCP},
	"ntp":      {123, ProtoUDP},
	"snmp":     {161, ProtoUDP},
	"https":    {443, ProtoTCP},
	"smtps":    {465, ProtoTCP},
}

// servicesByPort is services inverted for getnameinfo's port -> name
// direction, built once at init time.
var servicesByPort = func() map[uint16]string {
	m := make(map[uint16]string, len(services))
	for name, e := range services {
		m[e.port] = name
	}
	return m
}()

// EAICode is a getaddrinfo/getnameinfo error code. It implements error via
// gai_strerror-equivalent text, so callers can return it directly.
type EAICode int

const (
	EAIAddrFamily EAICode = iota + 1
	EAIAgain
	EAIBadFlags
	EAIFail
	EAIFamily
	EAIMemory
	EAINoName
	EAIOverflow
	EAIService
	EAISockType
	EAISystem
)

// Error implements error, returning the fixed English text gai_strerror
// would for this code, or the "unknown" text for anything out of range.
func (e EAICode) Error() string {
	switch e {
	case EAIAddrFamily:
		return "Address family for node_name not supported."
	case EAIAgain:
		return "Temporary failure in name resolution."
	case EAIBadFlags:
		return "Invalid value for ai_flags."
	case EAIFail:
		return "Non-recoverable failure in name resolution."
	case EAIFamily:
		return "ai_family not supported."
	case EAIMemory:
		return "Memory allocation failure."
	case EAINoName:
		return "node_name or service_name not provided, or not known."
	case EAIOverflow:
		return "argument buffer overflow."
	case EAIService:
		return "service_name is not supported for ai_socktype."
	case EAISockType:
		return "ai_socktype is not supported."
	case EAISystem:
		return "System error."
	default:
		return "Unknown EAI error."
	}
}

// GaiStrerror returns the fixed English text for an EAI code, mirroring
// gai_strerror(3) for callers that hold a bare int rather than an EAICode.
func GaiStrerror(code int) string {
	return EAICode(code).Error()
}
