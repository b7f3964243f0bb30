package mldp

import (
	"context"
	"net"
	"testing"

	"netstack/internal/icmpv6mld"
	"netstack/internal/timer"
)

func TestRxQueryZeroDelaySendsImmediateReport(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")
	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join: %v", err)
	}
	joinSends := tx.count()

	msg := icmpv6mld.Msg{MaxResponseDelayMs: 0, McastAddr: group}
	if err := e.RxQuery(context.Background(), 1, msg); err != nil {
		t.Fatalf("RxQuery: %v", err)
	}
	if tx.count() != joinSends+1 {
		t.Fatalf("sent after zero-delay query = %d, want %d", tx.count(), joinSends+1)
	}
}

func TestRxQueryWithDelayArmsRandomTimerWhenIdle(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")
	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join: %v", err)
	}
	id := e.table.Find(1, group)
	r := e.table.Get(id)
	// Force the record to Idle with no live timer, as if the join-time
	// retransmission had already completed.
	e.timers.Free(r.tmr)
	r.tmr = timer.NoTimer
	r.state = StateIdle
	r.delayMs = 0

	sentBefore := tx.count()
	msg := icmpv6mld.Msg{MaxResponseDelayMs: 2000, McastAddr: group}
	if err := e.RxQuery(context.Background(), 1, msg); err != nil {
		t.Fatalf("RxQuery: %v", err)
	}
	if tx.count() != sentBefore {
		t.Fatalf("sent after delayed query = %d, want %d (no immediate send)", tx.count(), sentBefore)
	}
	if r.state != StateDelaying {
		t.Fatalf("state = %v, want StateDelaying", r.state)
	}
	if r.tmr == timer.NoTimer {
		t.Fatal("delay timer not armed")
	}
}

func TestRxQueryGeneralQueryCoversEveryGroupOnInterface(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	g1 := net.ParseIP("ff05::1:3")
	g2 := net.ParseIP("ff05::1:4")
	if err := e.Join(context.Background(), 1, g1); err != nil {
		t.Fatalf("Join g1: %v", err)
	}
	if err := e.Join(context.Background(), 1, g2); err != nil {
		t.Fatalf("Join g2: %v", err)
	}
	sentBefore := tx.count()

	msg := icmpv6mld.Msg{MaxResponseDelayMs: 0, McastAddr: net.IPv6unspecified}
	if err := e.RxQuery(context.Background(), 1, msg); err != nil {
		t.Fatalf("RxQuery: %v", err)
	}
	if tx.count() != sentBefore+2 {
		t.Fatalf("sent after general query = %d, want %d", tx.count(), sentBefore+2)
	}
}

func TestRxQueryUnknownSpecificGroupFails(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	msg := icmpv6mld.Msg{MaxResponseDelayMs: 0, McastAddr: net.ParseIP("ff05::1:3")}
	if err := e.RxQuery(context.Background(), 1, msg); err == nil {
		t.Fatal("RxQuery on unjoined specific group should fail")
	}
}

func TestRxReportSuppressesPendingDelay(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")
	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join: %v", err)
	}
	id := e.table.Find(1, group)
	r := e.table.Get(id)
	if r.state != StateDelaying {
		t.Fatalf("state after join = %v, want Delaying", r.state)
	}

	msg := icmpv6mld.Msg{MaxResponseDelayMs: 0, McastAddr: group}
	if err := e.RxReport(context.Background(), 1, msg); err != nil {
		t.Fatalf("RxReport: %v", err)
	}
	if r.state != StateIdle {
		t.Fatalf("state after report suppression = %v, want Idle", r.state)
	}
	if r.tmr != timer.NoTimer {
		t.Fatal("delay timer should be freed on report suppression")
	}
	if r.refCtr != 2 {
		t.Fatalf("refCtr after report = %d, want 2", r.refCtr)
	}
}
