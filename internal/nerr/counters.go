package nerr

import "sync/atomic"

// Counters mirrors Net_ErrCtrs: a bank of free-running counters the
// application can inspect instead of a thread-local errno. They are updated
// without the global lock since they are observability, never protocol
// state.
type Counters struct {
	Tmr  TmrCtrs
	MLDP MLDPCtrs
	Sock SockCtrs
}

// TmrCtrs counts timer-core error events.
type TmrCtrs struct {
	NullFnctCtr  atomic.Int64
	NoneAvailCtr atomic.Int64
	InUseCtr     atomic.Int64
	NullPtrCtr   atomic.Int64
	NotUsedCtr   atomic.Int64 // incremented on double-Free and on a callback-less expiry
}

// MLDPCtrs counts MLDP engine error events.
type MLDPCtrs struct {
	NullPtrCtr        atomic.Int64
	InvalidAddrGrpCtr atomic.Int64
	InvalidHopHdrCtr  atomic.Int64
	InvalidAddrSrcCtr atomic.Int64
	InvalidAddrDstCtr atomic.Int64
	InvalidLenCtr     atomic.Int64
	InvalidTypeCtr    atomic.Int64
	HostGrpNotFoundCtr atomic.Int64
	TxErrCtr          atomic.Int64
}

// SockCtrs counts socket-facade error events.
type SockCtrs struct {
	RetryExhaustedCtr atomic.Int64
	RxErrCtr          atomic.Int64
	TxErrCtr          atomic.Int64
}

// PoolStat mirrors NET_STAT_POOL: entries-used plus the high-water mark,
// always mutated under the owning pool's critical section.
type PoolStat struct {
	EntriesTotal int32
	EntriesUsed  int32
	EntriesMax   int32
}

// EntryUsedInc records one more pool entry drawn, updating the high-water
// mark if this is a new peak.
func (s *PoolStat) EntryUsedInc() {
	s.EntriesUsed++
	if s.EntriesUsed > s.EntriesMax {
		s.EntriesMax = s.EntriesUsed
	}
}

// EntryUsedDec records one pool entry returned.
func (s *PoolStat) EntryUsedDec() {
	if s.EntriesUsed > 0 {
		s.EntriesUsed--
	}
}

// ResetMaxUsed resets the high-water mark to the current usage, per
// NetStat_PoolResetUsedMax.
func (s *PoolStat) ResetMaxUsed() {
	s.EntriesMax = s.EntriesUsed
}
