package mldp

import (
	"net"

	"netstack/internal/nerr"
)

// NoRecord is the "no record" sentinel, the mldp analogue of timer.NoTimer.
const NoRecord = -1

// Table is the fixed pool of host-group records: a LIFO free stack plus one
// doubly-linked active list spanning every interface. ForEachOnInterface
// filters that single list rather than keeping a separate per-interface
// list, trading an O(n) scan (n = total joined groups, expected small) for
// not having to maintain two sets of links per record.
type Table struct {
	records    []Record
	freeHead   int
	activeHead int
	stat       nerr.PoolStat
}

// NewTable allocates a Table with a fixed pool of size records.
func NewTable(size int) *Table {
	t := &Table{
		records:    make([]Record, size),
		freeHead:   NoRecord,
		activeHead: NoRecord,
	}
	for i := size - 1; i >= 0; i-- {
		t.records[i].next = t.freeHead
		t.records[i].state = StateFree
		t.freeHead = i
	}
	t.stat.EntriesTotal = int32(size)
	return t
}

func addrKey(addr net.IP) [16]byte {
	var k [16]byte
	copy(k[:], addr.To16())
	return k
}

// Find returns the index of the record for (ifNbr, addr), or NoRecord if
// none is joined.
func (t *Table) Find(ifNbr int, addr net.IP) int {
	key := addrKey(addr)
	for i := t.activeHead; i != NoRecord; i = t.records[i].next {
		r := &t.records[i]
		if r.ifNbr == ifNbr && r.addr == key {
			return i
		}
	}
	return NoRecord
}

// Alloc reserves a record from the pool and inserts it at the head of the
// active list, set to (ifNbr, addr) with RefCtr 1 and the given state.
func (t *Table) Alloc(ifNbr int, addr net.IP, state State) (int, error) {
	if t.freeHead == NoRecord {
		return NoRecord, nerr.NoneAvail
	}
	id := t.freeHead
	r := &t.records[id]
	t.freeHead = r.next

	r.prev = NoRecord
	r.next = t.activeHead
	r.ifNbr = ifNbr
	r.addr = addrKey(addr)
	r.refCtr = 1
	r.state = state
	r.tmr = -1
	if t.activeHead != NoRecord {
		t.records[t.activeHead].prev = id
	}
	t.activeHead = id

	t.stat.EntryUsedInc()
	return id, nil
}

// Free returns a record to the pool unconditionally (RefCtr is not
// consulted; callers that need refcounted release should decrement RefCtr
// themselves and only Free at zero).
func (t *Table) Free(id int) {
	if id == NoRecord {
		return
	}
	r := &t.records[id]
	if r.cleared() {
		return
	}

	prev, next := r.prev, r.next
	if prev != NoRecord {
		t.records[prev].next = next
	} else {
		t.activeHead = next
	}
	if next != NoRecord {
		t.records[next].prev = prev
	}

	r.next = t.freeHead
	t.freeHead = id
	r.state = StateFree
	t.stat.EntryUsedDec()
}

// Get returns a pointer to record id. Callers hold the engine's global lock
// for the duration of any use of the returned pointer.
func (t *Table) Get(id int) *Record {
	return &t.records[id]
}

// ForEachOnInterface calls fn for every live record on ifNbr, in active-list
// order. fn may not mutate the table.
func (t *Table) ForEachOnInterface(ifNbr int, fn func(id int, r *Record)) {
	for i := t.activeHead; i != NoRecord; i = t.records[i].next {
		if t.records[i].ifNbr == ifNbr {
			fn(i, &t.records[i])
		}
	}
}

// PoolStatGet returns a snapshot of the pool statistics.
func (t *Table) PoolStatGet() nerr.PoolStat {
	return t.stat
}
