package mldp

import (
	"context"
	"math/rand/v2"
	"net"

	"netstack/internal/icmpv6mld"
	"netstack/internal/nerr"
	"netstack/internal/timer"
)

// RxQuery handles an incoming MLD Query: a general query (unspecified
// destination) reports every group joined on ifNbr, a multicast-address-
// specific query reports only that one group.
func (e *Engine) RxQuery(ctx context.Context, ifNbr int, msg icmpv6mld.Msg) error {
	ctx, err := e.lock.Acquire(ctx, e)
	if err != nil {
		return err
	}
	defer e.lock.Release(ctx)
	return e.rxQueryLocked(ctx, ifNbr, msg)
}

func (e *Engine) rxQueryLocked(ctx context.Context, ifNbr int, msg icmpv6mld.Msg) error {
	unspecified := msg.McastAddr.Equal(e.ipv6.AddrUnspecified())
	mcast := e.ipv6.IsAddrMcast(msg.McastAddr)
	if !unspecified && !mcast {
		e.ctrs.InvalidAddrGrpCtr.Add(1)
		return nerr.MldpInvalidAddrGrp
	}

	var ids []int
	if unspecified {
		e.table.ForEachOnInterface(ifNbr, func(id int, r *Record) { ids = append(ids, id) })
	} else {
		id := e.table.Find(ifNbr, msg.McastAddr)
		if id == NoRecord {
			e.ctrs.HostGrpNotFoundCtr.Add(1)
			return nerr.MldpHostGrpNotFound
		}
		ids = []int{id}
	}

	for _, id := range ids {
		e.rxQueryRecordLocked(ctx, id, msg.MaxResponseDelayMs)
	}
	return nil
}

// rxQueryRecordLocked applies one query's response logic to a single
// record, mirroring NetMLDP_RxQuery's per-group loop body. Transmit
// failures on an individual group are counted but never abort the loop: a
// query naming every group on an interface must still try every one of
// them.
func (e *Engine) rxQueryRecordLocked(ctx context.Context, id int, respDelayMs uint16) {
	r := e.table.Get(id)
	addr := net.IP(append([]byte(nil), r.addr[:]...))

	if e.reportSuppressedLocked(addr) {
		if r.tmr != timer.NoTimer {
			e.timers.Free(r.tmr)
		}
		r.tmr = timer.NoTimer
		r.state = StateIdle
		r.delayMs = 0
		return
	}

	timeoutTicks := 0
	if respDelayMs != 0 {
		timeoutTicks = int(respDelayMs) * e.cfg.TickPerSec / 1000
	}

	switch {
	case timeoutTicks == 0:
		// No delay requested: respond immediately.
		if err := e.txReportLocked(ctx, r.ifNbr, addr); err != nil {
			e.ctrs.TxErrCtr.Add(1)
		}

	case r.state == StateIdle || r.delayMs > int(respDelayMs):
		// Not already counting down to a sooner report: arm a fresh
		// delay, picked uniformly at random over [0, respDelayMs] with the
		// upper bound clipped to MaxResponseDlyCapSec.
		maxMs := int(respDelayMs)
		if capMs := e.cfg.MaxResponseDlyCapSec * 1000; maxMs > capMs {
			maxMs = capMs
		}
		delayMs := rand.IntN(maxMs + 1)
		if r.tmr != timer.NoTimer {
			e.timers.Free(r.tmr)
			r.tmr = timer.NoTimer
		}
		tmrID, err := e.timers.Get(e.onReportDlyTimeout, recordOwner{id: id}, delayMs*e.cfg.TickPerSec/1000)
		if err != nil {
			// No timer available: fall back to an immediate report.
			if txErr := e.txReportLocked(ctx, r.ifNbr, addr); txErr != nil {
				e.ctrs.TxErrCtr.Add(1)
			}
			return
		}
		r.tmr = tmrID
		r.state = StateDelaying
		r.delayMs = delayMs

	default:
		// Already delaying a report due sooner than this query asked for;
		// nothing to do.
	}
}

// RxReport handles an incoming MLD Report from another host on the same
// link: it suppresses this host's own pending report for the group, since
// RFC 2710 only needs one report per group per query.
func (e *Engine) RxReport(ctx context.Context, ifNbr int, msg icmpv6mld.Msg) error {
	ctx, err := e.lock.Acquire(ctx, e)
	if err != nil {
		return err
	}
	defer e.lock.Release(ctx)
	return e.rxReportLocked(ifNbr, msg)
}

func (e *Engine) rxReportLocked(ifNbr int, msg icmpv6mld.Msg) error {
	if !e.ipv6.IsAddrMcast(msg.McastAddr) {
		e.ctrs.InvalidAddrGrpCtr.Add(1)
		return nerr.MldpInvalidAddrGrp
	}

	id := e.table.Find(ifNbr, msg.McastAddr)
	if id == NoRecord {
		e.ctrs.HostGrpNotFoundCtr.Add(1)
		return nerr.MldpHostGrpNotFound
	}

	r := e.table.Get(id)
	r.refCtr++
	r.state = StateIdle
	if r.tmr != timer.NoTimer {
		e.timers.Free(r.tmr)
		r.tmr = timer.NoTimer
	}
	return nil
}
