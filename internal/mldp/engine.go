package mldp

import (
	"context"
	"net"

	"netstack/internal/contract"
	"netstack/internal/icmpv6mld"
	"netstack/internal/nerr"
	"netstack/internal/netlock"
	"netstack/internal/timer"
)

// Scope ids (RFC 4291 §2.7) that never get an MLD report: reserved and
// interface-local, alongside the all-nodes address regardless of scope.
const (
	scopeReserved = 0x0
	scopeIfLocal  = 0x1
)

// Config holds the tunable delays the engine arms its timers with, all
// named after the NET_MLDP_HOST_GRP_REPORT_DLY_* constants they replace.
type Config struct {
	// TickPerSec is the sweep frequency of the shared timer.Wheel, used to
	// convert the second- and millisecond-denominated delays below into
	// tick counts.
	TickPerSec int
	// UnsolicitedReportDlySec is the delay the join-time retransmission timer is
	// armed with, alongside the report sent immediately on join.
	UnsolicitedReportDlySec int
	// ReportRetryDlySec is the delay before retrying a report after a
	// transmit error.
	ReportRetryDlySec int
	// MaxResponseDlyCapSec is the inclusive upper bound of the random delay
	// picked in response to a Query.
	MaxResponseDlyCapSec int
}

func (c Config) ticks(sec int) int {
	return sec * c.TickPerSec
}

// Engine is the MLDPv1 host-group membership engine.
type Engine struct {
	lock   *netlock.Lock
	ctrs   *nerr.MLDPCtrs
	table  *Table
	timers *timer.Wheel
	ifaces contract.IfaceManager
	ipv6   contract.IPv6Helper
	icmp   contract.ICMPv6Transmitter
	cfg    Config

	linkSubs map[int]int // refcount of link-state subscriptions, by interface
}

// New builds an Engine over the given collaborators and a fresh record
// table of the given size.
func New(lock *netlock.Lock, ctrs *nerr.MLDPCtrs, tableSize int, timers *timer.Wheel, ifaces contract.IfaceManager, ipv6 contract.IPv6Helper, icmp contract.ICMPv6Transmitter, cfg Config) *Engine {
	return &Engine{
		lock:     lock,
		ctrs:     ctrs,
		table:    NewTable(tableSize),
		timers:   timers,
		ifaces:   ifaces,
		ipv6:     ipv6,
		icmp:     icmp,
		cfg:      cfg,
		linkSubs: make(map[int]int),
	}
}

// Join joins the multicast group addr on ifNbr: an existing record's
// refcount is bumped, otherwise a new record is allocated and its
// membership is advertised.
func (e *Engine) Join(ctx context.Context, ifNbr int, addr net.IP) error {
	ctx, err := e.lock.Acquire(ctx, e)
	if err != nil {
		return err
	}
	defer e.lock.Release(ctx)
	return e.joinLocked(ctx, ifNbr, addr)
}

func (e *Engine) joinLocked(ctx context.Context, ifNbr int, addr net.IP) error {
	if !e.ifaces.IsValid(ifNbr) {
		return nerr.InvalidArg
	}
	if !e.ipv6.IsAddrMcast(addr) {
		e.ctrs.InvalidAddrGrpCtr.Add(1)
		return nerr.MldpInvalidAddrGrp
	}

	if id := e.table.Find(ifNbr, addr); id != NoRecord {
		e.table.Get(id).refCtr++
		return nil
	}

	id, err := e.table.Alloc(ifNbr, addr, StateIdle)
	if err != nil {
		return err
	}

	if err := e.ifaces.AddrMulticastAdd(ifNbr, addr); err != nil {
		e.table.Free(id)
		return err
	}

	if err := e.txAdvertiseMembershipLocked(ctx, id); err != nil {
		e.ifaces.AddrMulticastRemove(ifNbr, addr)
		e.table.Free(id)
		return err
	}

	e.subscribeLinkStateLocked(ifNbr)
	return nil
}

// Leave leaves the multicast group addr on ifNbr, decrementing its
// refcount and, once it reaches zero, advertising the end of membership and
// freeing the record.
func (e *Engine) Leave(ctx context.Context, ifNbr int, addr net.IP) error {
	ctx, err := e.lock.Acquire(ctx, e)
	if err != nil {
		return err
	}
	defer e.lock.Release(ctx)
	return e.leaveLocked(ctx, ifNbr, addr)
}

func (e *Engine) leaveLocked(ctx context.Context, ifNbr int, addr net.IP) error {
	id := e.table.Find(ifNbr, addr)
	if id == NoRecord {
		e.ctrs.HostGrpNotFoundCtr.Add(1)
		return nerr.MldpHostGrpNotFound
	}
	r := e.table.Get(id)
	r.refCtr--

	if r.refCtr < 1 && !e.reportSuppressedLocked(addr) {
		if err := e.txDoneLocked(ctx, ifNbr, addr); err != nil && err != nerr.IfLinkDown {
			// Any other transmit failure aborts the leave before the
			// record is removed; the join stays live for a later retry.
			return err
		}
	}

	if r.refCtr < 1 {
		if r.tmr != timer.NoTimer {
			e.timers.Free(r.tmr)
		}
		e.table.Free(id)
		e.ifaces.AddrMulticastRemove(ifNbr, addr)
		e.unsubscribeLinkStateLocked(ifNbr)
	}
	return nil
}

// IsGrpJoinedOnIF reports whether addr is a joined group on ifNbr.
func (e *Engine) IsGrpJoinedOnIF(ctx context.Context, ifNbr int, addr net.IP) (bool, error) {
	ctx, err := e.lock.Acquire(ctx, e)
	if err != nil {
		return false, err
	}
	defer e.lock.Release(ctx)
	return e.table.Find(ifNbr, addr) != NoRecord, nil
}

func (e *Engine) reportSuppressedLocked(addr net.IP) bool {
	if e.ipv6.IsAddrMcastAllNodes(addr) {
		return true
	}
	scope := e.ipv6.GetAddrScope(addr)
	return scope == scopeReserved || scope == scopeIfLocal
}

// subscribeLinkStateLocked subscribes e.onLinkState to ifNbr's link-state
// notifications the first time a group is joined on it, refcounting
// further joins so LinkStateSubscribe is only ever called once per
// interface.
func (e *Engine) subscribeLinkStateLocked(ifNbr int) {
	e.linkSubs[ifNbr]++
	if e.linkSubs[ifNbr] == 1 {
		e.ifaces.LinkStateSubscribe(ifNbr, e.onLinkState)
	}
}

func (e *Engine) unsubscribeLinkStateLocked(ifNbr int) {
	e.linkSubs[ifNbr]--
	if e.linkSubs[ifNbr] <= 0 {
		delete(e.linkSubs, ifNbr)
		e.ifaces.LinkStateUnsubscribe(ifNbr, e.onLinkState)
	}
}

// onLinkState reacts to a link transition reported by the interface
// manager. On link-up, every group joined on the interface re-advertises
// its membership, the way NetMLDP_LinkStateNotification does; link-down
// needs no action here, since a send attempted while the link is down
// simply surfaces as a transitory error at the next report attempt.
func (e *Engine) onLinkState(ifNbr int, state contract.LinkState) {
	if state != contract.LinkUp {
		return
	}
	ctx, err := e.lock.Acquire(netlock.WithToken(context.Background()), e)
	if err != nil {
		return
	}
	defer e.lock.Release(ctx)

	var ids []int
	e.table.ForEachOnInterface(ifNbr, func(id int, r *Record) { ids = append(ids, id) })
	for _, id := range ids {
		_ = e.txAdvertiseMembershipLocked(ctx, id)
	}
}

// txAdvertiseMembershipLocked, unless the group is suppressed (all-nodes,
// or a reserved or interface-local scope), arms the join-time
// retransmission timer and sends an immediate report for record id; a
// suppressed group is left Idle with nothing sent.
func (e *Engine) txAdvertiseMembershipLocked(ctx context.Context, id int) error {
	r := e.table.Get(id)
	addr := net.IP(append([]byte(nil), r.addr[:]...))

	if e.reportSuppressedLocked(addr) {
		r.tmr = timer.NoTimer
		r.state = StateIdle
		r.delayMs = 0
		return nil
	}

	tmrID, err := e.timers.Get(e.onReportDlyTimeout, recordOwner{id: id}, e.cfg.ticks(e.cfg.UnsolicitedReportDlySec))
	if err == nil {
		r.tmr = tmrID
		r.state = StateDelaying
		r.delayMs = e.cfg.UnsolicitedReportDlySec * 1000
	} else {
		r.tmr = timer.NoTimer
		r.state = StateIdle
		r.delayMs = 0
	}

	txErr := e.txReportLocked(ctx, r.ifNbr, addr)
	switch txErr {
	case nil:
		return nil
	case nerr.IfLinkDown:
		// No point retransmitting while the link is down; the retry timer
		// just armed above is cancelled and re-advertisement instead waits
		// on the link-up notification.
		if r.tmr != timer.NoTimer {
			e.timers.Free(r.tmr)
			r.tmr = timer.NoTimer
		}
		r.state = StateIdle
		r.delayMs = 0
		return nil
	default:
		return txErr
	}
}

// recordOwner is the payload timer.Wheel's Callback carries through to
// onReportDlyTimeout: just enough to recover the record this timer belongs
// to, mirroring the NET_MLDP_HOST_GRP pointer the source casts back out of
// its callback's void* argument.
type recordOwner struct{ id int }

// onReportDlyTimeout is the delayed/retry report timer callback. It runs
// synchronously inside timer.Wheel.Sweep with the shared lock already held,
// so it must never call Engine methods that acquire it again — only the
// Locked primitives below.
func (e *Engine) onReportDlyTimeout(owner any) {
	o, ok := owner.(recordOwner)
	if !ok {
		return
	}
	e.reportDlyTimeoutLocked(o.id)
}

func (e *Engine) reportDlyTimeoutLocked(id int) {
	r := e.table.Get(id)
	if r.cleared() {
		return
	}
	r.tmr = timer.NoTimer

	addr := net.IP(append([]byte(nil), r.addr[:]...))
	// This callback runs nested inside timer.Wheel.Sweep with the lock
	// already held by that call's own token; txReportLocked never
	// re-acquires it, so a plain background context is all the downstream
	// transmitter call needs.
	err := e.txReportLocked(context.Background(), r.ifNbr, addr)

	switch err {
	case nil, nerr.IfLinkDown:
		r.state = StateIdle
		r.delayMs = 0
	case nerr.Tx:
		// A genuine Tx error, as opposed to link-down or success: arm one
		// more retry.
		tmrID, tmrErr := e.timers.Get(e.onReportDlyTimeout, recordOwner{id: id}, e.cfg.ticks(e.cfg.ReportRetryDlySec))
		if tmrErr == nil {
			r.tmr = tmrID
			r.state = StateDelaying
			r.delayMs = e.cfg.ReportRetryDlySec * 1000
		} else {
			r.state = StateIdle
			r.delayMs = 0
		}
	default:
		r.state = StateIdle
		r.delayMs = 0
	}
}

func (e *Engine) txReportLocked(ctx context.Context, ifNbr int, addr net.IP) error {
	src := e.reportSrcLocked(ifNbr)
	msg := icmpv6mld.Msg{MaxResponseDelayMs: 0, McastAddr: addr}
	return e.icmp.TxMsgReqHandler(ctx, ifNbr, icmpv6mld.MsgTypeReportV1, 0, src, addr, 1, msg.Marshal())
}

func (e *Engine) txDoneLocked(ctx context.Context, ifNbr int, addr net.IP) error {
	src := e.reportSrcLocked(ifNbr)
	dst := e.ipv6.AddrMcastAllRouters()
	msg := icmpv6mld.Msg{MaxResponseDelayMs: 0, McastAddr: addr}
	return e.icmp.TxMsgReqHandler(ctx, ifNbr, icmpv6mld.MsgTypeDone, 0, src, dst, 1, msg.Marshal())
}

func (e *Engine) reportSrcLocked(ifNbr int) net.IP {
	if ll, ok := e.ifaces.LinkLocalAddr(ifNbr); ok && ll != nil {
		return ll
	}
	return e.ipv6.AddrUnspecified()
}
