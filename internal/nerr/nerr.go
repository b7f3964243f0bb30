// Package nerr is the error taxonomy shared by every subsystem: the timer
// core, the MLDP engine, and the socket facade all return nerr.Code values
// instead of ad hoc errors so that the retry wrapper and the MLDP state
// machine can classify failures by a shared, closed set of codes rather
// than by matching error strings.
package nerr

// Code is a taxonomy member. It implements error so call sites can return
// it directly; Classify() decides how the socket/MLDP layers react to it.
type Code string

func (c Code) Error() string { return string(c) }

// Initialization.
const (
	InitNotComplete Code = "init-not-complete"
)

// Argument.
const (
	NullPtr           Code = "null-ptr"
	NullFnct          Code = "null-fnct"
	InvalidTime       Code = "invalid-time"
	InvalidAddrFamily Code = "invalid-addr-family"
	InvalidAddrLen    Code = "invalid-addr-len"
	InvalidArg        Code = "invalid-arg"
)

// Resource.
const (
	NoneAvail       Code = "none-avail"
	MemAlloc        Code = "mem-alloc"
	PortNbrNoneAvail Code = "port-nbr-none-avail"
	AddrInUse       Code = "addr-in-use"
	AddrNoneAvail   Code = "addr-none-avail"
)

// State.
const (
	InvalidOp      Code = "invalid-op"
	InvalidState   Code = "invalid-state"
	Closed         Code = "closed"
	NotUsed        Code = "not-used"
	InUse          Code = "in-use"
	ConnInProgress Code = "conn-in-progress"
	ConnFail       Code = "conn-fail"
)

// Protocol-specific (MLDP).
const (
	MldpInvalidAddrGrp    Code = "mldp-invalid-addr-grp"
	MldpInvalidHopHdr     Code = "mldp-invalid-hop-hdr"
	MldpInvalidAddrSrc    Code = "mldp-invalid-addr-src"
	MldpInvalidAddrDest   Code = "mldp-invalid-addr-dest"
	MldpInvalidLen        Code = "mldp-invalid-len"
	MldpInvalidType       Code = "mldp-invalid-type"
	MldpHostGrpNotFound   Code = "mldp-host-grp-not-found"
)

// Transport.
const (
	Tx            Code = "tx"
	Rx            Code = "rx"
	TxBufNoneAvail Code = "tx-buf-none-avail"
	IfLinkDown    Code = "if-link-down"
)

// Lock.
const (
	FaultLockAcquire Code = "fault-lock-acquire"
)

// ASCII conversion (MAC/IPv4/IPv6 string parsing).
const (
	AsciiInvalidStrLen  Code = "ascii-invalid-str-len"
	AsciiInvalidChar    Code = "ascii-invalid-char"
	AsciiInvalidCharLen Code = "ascii-invalid-char-len"
	AsciiInvalidCharVal Code = "ascii-invalid-char-val"
	AsciiInvalidCharSeq Code = "ascii-invalid-char-seq"
	AsciiInvalidPartLen Code = "ascii-invalid-part-len"
)

// Catchall.
const (
	FaultUnknown Code = "fault-unknown"
)

// None is the explicit "no error" sentinel some call sites check against
// instead of a nil error, mirroring NET_ERR_NONE in the source material.
const None Code = "none"

// Class is the coarse bucket the retry wrapper and the MLDP engine react to.
type Class int

const (
	ClassSuccess Class = iota
	ClassTransitory
	ClassInvalidArg
	ClassInvalidOp
	ClassFatal
	ClassConnClosed
)

// Classify buckets a raw error (typically a Code returned by a collaborator)
// into the coarse class the retry wrapper and MLDP engine branch on. Unknown
// errors are treated as fatal, since there is no "unknown but keep
// retrying" category — silently retrying an unrecognized failure would
// contradict the documented propagation policy.
func Classify(err error) Class {
	if err == nil {
		return ClassSuccess
	}
	code, ok := err.(Code)
	if !ok {
		return ClassFatal
	}
	switch code {
	case None:
		return ClassSuccess
	case AddrInUse, NoneAvail, PortNbrNoneAvail, AddrNoneAvail, Tx, Rx, TxBufNoneAvail, ConnInProgress, IfLinkDown:
		return ClassTransitory
	case InvalidArg, InvalidAddrFamily, InvalidAddrLen, InvalidTime, NullPtr, NullFnct,
		AsciiInvalidStrLen, AsciiInvalidChar, AsciiInvalidCharLen, AsciiInvalidCharVal, AsciiInvalidCharSeq, AsciiInvalidPartLen:
		return ClassInvalidArg
	case InvalidOp, InvalidState, NotUsed, InUse:
		return ClassInvalidOp
	case Closed, ConnFail:
		return ClassConnClosed
	default:
		return ClassFatal
	}
}
