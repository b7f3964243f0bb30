package mldp

import (
	"context"
	"net"
	"sync"
	"testing"

	"netstack/internal/iface"
	"netstack/internal/icmpv6mld"
	"netstack/internal/ipv6util"
	"netstack/internal/nerr"
	"netstack/internal/netlock"
	"netstack/internal/timer"
)

type sentMsg struct {
	ifNbr   int
	msgType byte
	src     net.IP
	dst     net.IP
}

type fakeTransmitter struct {
	mu   sync.Mutex
	sent []sentMsg
	err  error // if non-nil, every send fails with this error
}

func (f *fakeTransmitter) TxMsgReqHandler(ctx context.Context, ifNbr int, msgType, code byte, src, dst net.IP, hopLimit byte, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMsg{ifNbr: ifNbr, msgType: msgType, src: src, dst: dst})
	return nil
}

func (f *fakeTransmitter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestEngine(t *testing.T, tx *fakeTransmitter) (*Engine, *iface.Manager) {
	t.Helper()
	lock := &netlock.Lock{}
	ctrs := &nerr.MLDPCtrs{}
	tmrCtrs := &nerr.TmrCtrs{}
	timers := timer.New(lock, tmrCtrs, 16)
	ifaces := iface.New()
	ifaces.AddIface(1, net.ParseIP("fe80::1"))

	cfg := Config{
		TickPerSec:              10,
		UnsolicitedReportDlySec: 2,
		ReportRetryDlySec:       3,
		MaxResponseDlyCapSec:    5,
	}
	e := New(lock, ctrs, 16, timers, ifaces, ipv6util.New(), tx, cfg)
	return e, ifaces
}

func TestJoinSendsImmediateReportAndArmsRetryTimer(t *testing.T) {
	tx := &fakeTransmitter{}
	e, ifaces := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")

	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if tx.count() != 1 {
		t.Fatalf("sent = %d, want 1", tx.count())
	}
	if tx.sent[0].msgType != icmpv6mld.MsgTypeReportV1 {
		t.Fatalf("msgType = %d, want %d", tx.sent[0].msgType, icmpv6mld.MsgTypeReportV1)
	}

	joined, err := e.IsGrpJoinedOnIF(context.Background(), 1, group)
	if err != nil || !joined {
		t.Fatalf("IsGrpJoinedOnIF = %v, %v; want true, nil", joined, err)
	}

	grps := ifaces.McastGroups(1)
	if len(grps) != 1 {
		t.Fatalf("iface multicast groups = %v, want 1 entry", grps)
	}

	id := e.table.Find(1, group)
	if id == NoRecord {
		t.Fatal("record not found after join")
	}
	r := e.table.Get(id)
	if r.state != StateDelaying {
		t.Fatalf("state = %v, want StateDelaying", r.state)
	}
	if r.tmr == timer.NoTimer {
		t.Fatal("retry timer not armed")
	}
}

func TestJoinTwiceIncrementsRefCount(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")

	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join 1: %v", err)
	}
	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join 2: %v", err)
	}
	if tx.count() != 1 {
		t.Fatalf("sent = %d, want 1 (second join must not re-advertise)", tx.count())
	}

	id := e.table.Find(1, group)
	if e.table.Get(id).refCtr != 2 {
		t.Fatalf("refCtr = %d, want 2", e.table.Get(id).refCtr)
	}
}

func TestLeaveSendsDoneOnLastRefAndFreesRecord(t *testing.T) {
	tx := &fakeTransmitter{}
	e, ifaces := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")

	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join 2: %v", err)
	}

	if err := e.Leave(context.Background(), 1, group); err != nil {
		t.Fatalf("Leave 1: %v", err)
	}
	if tx.count() != 1 {
		t.Fatalf("sent after first leave = %d, want 1 (still referenced)", tx.count())
	}
	joined, _ := e.IsGrpJoinedOnIF(context.Background(), 1, group)
	if !joined {
		t.Fatal("group should still be joined after first Leave")
	}

	if err := e.Leave(context.Background(), 1, group); err != nil {
		t.Fatalf("Leave 2: %v", err)
	}
	if tx.count() != 2 {
		t.Fatalf("sent after second leave = %d, want 2 (report + done)", tx.count())
	}
	if tx.sent[1].msgType != icmpv6mld.MsgTypeDone {
		t.Fatalf("second message type = %d, want Done", tx.sent[1].msgType)
	}

	joined, _ = e.IsGrpJoinedOnIF(context.Background(), 1, group)
	if joined {
		t.Fatal("group should be gone after refcount reaches zero")
	}
	if len(ifaces.McastGroups(1)) != 0 {
		t.Fatal("interface multicast membership should be released")
	}
}

func TestLeaveUnknownGroupFails(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	err := e.Leave(context.Background(), 1, net.ParseIP("ff05::1:3"))
	if err != nerr.MldpHostGrpNotFound {
		t.Fatalf("err = %v, want %v", err, nerr.MldpHostGrpNotFound)
	}
}

func TestJoinAllNodesNeverReportsOrArmsTimer(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	allNodes := net.ParseIP("ff02::1")

	if err := e.Join(context.Background(), 1, allNodes); err != nil {
		t.Fatalf("Join: %v", err)
	}
	if tx.count() != 0 {
		t.Fatalf("sent = %d, want 0 for the all-nodes group", tx.count())
	}

	id := e.table.Find(1, allNodes)
	r := e.table.Get(id)
	if r.state != StateIdle || r.tmr != timer.NoTimer {
		t.Fatalf("all-nodes record = %+v, want Idle with no timer", r)
	}
}

func TestReportDlyTimeoutRetriesOnTxError(t *testing.T) {
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

	tx.mu.Lock()
	tx.err = nerr.Tx
	tx.mu.Unlock()

	e.reportDlyTimeoutLocked(id)
	if r.state != StateDelaying {
		t.Fatalf("state after tx-error timeout = %v, want Delaying (retry armed)", r.state)
	}
	if r.tmr == timer.NoTimer {
		t.Fatal("retry timer not re-armed after Tx error")
	}
}

func TestReportDlyTimeoutGoesIdleOnLinkDown(t *testing.T) {
	tx := &fakeTransmitter{}
	e, _ := newTestEngine(t, tx)
	group := net.ParseIP("ff05::1:3")

	if err := e.Join(context.Background(), 1, group); err != nil {
		t.Fatalf("Join: %v", err)
	}
	id := e.table.Find(1, group)
	r := e.table.Get(id)

	tx.mu.Lock()
	tx.err = nerr.IfLinkDown
	tx.mu.Unlock()

	e.reportDlyTimeoutLocked(id)
	if r.state != StateIdle {
		t.Fatalf("state after link-down timeout = %v, want Idle", r.state)
	}
	if r.tmr != timer.NoTimer {
		t.Fatal("timer should not be re-armed after link-down")
	}
}
