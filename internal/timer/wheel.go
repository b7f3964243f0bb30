// Package timer is the shared sweep timer: a fixed pool of timer cells
// linked into a doubly-linked active list, swept once per tick by a single
// task under the global lock. The pool and the active list are realized as
// a dense array with index-based links instead of raw pointers, so the free
// pool is just a LIFO stack of indices and the active list's head/cursor
// are plain ints.
package timer

import (
	"context"
	"sync"
	"time"

	"netstack/internal/nerr"
	"netstack/internal/netlock"
)

// ID identifies a timer cell by its slot in the pool. NoTimer is the "no
// timer" sentinel, standing in for a nil *NET_TMR pointer.
type ID int

const NoTimer ID = -1

// Callback is a timer expiry callback. It receives the opaque owner object
// passed to Get — the type-safety burden is pushed to the one call site
// that knows the concrete owner type, via a type assertion, rather than
// every caller remembering an implicit pointer-cast contract.
type Callback func(owner any)

type cell struct {
	prev, next ID
	owner      any
	fn         Callback
	ticks      int
}

// cleared reports whether this cell is in free-pool state (fn == nil). A
// fresh cell from the free pool must always look like this; finding
// otherwise on Get is the pool-corruption signal worth a counter bump.
func (c *cell) cleared() bool { return c.fn == nil }

// Wheel is the Timer Core: the cell pool plus the active list plus the
// sweep cursor. The zero value is not ready to use; call Init.
type Wheel struct {
	lock *netlock.Lock
	ctrs *nerr.TmrCtrs

	mu         sync.Mutex // critical section: pool/list mutation only, never held across a callback
	cells      []cell
	freeHead   ID
	activeHead ID
	cursor     ID
	stat       nerr.PoolStat
}

// New allocates a Wheel with a fixed pool of poolSize cells.
func New(lock *netlock.Lock, ctrs *nerr.TmrCtrs, poolSize int) *Wheel {
	w := &Wheel{
		lock:       lock,
		ctrs:       ctrs,
		cells:      make([]cell, poolSize),
		freeHead:   NoTimer,
		activeHead: NoTimer,
		cursor:     NoTimer,
	}
	for i := poolSize - 1; i >= 0; i-- {
		w.cells[i].next = w.freeHead
		w.cells[i].fn = nil
		w.freeHead = ID(i)
	}
	w.stat.EntriesTotal = int32(poolSize)
	return w
}

// Get reserves a cell from the pool, inserts it at the head of the active
// list with the given remaining tick count, and returns its ID. A zero tick
// count is legal: the timer fires on the very next sweep.
func (w *Wheel) Get(fn Callback, owner any, ticks int) (ID, error) {
	if fn == nil {
		w.ctrs.NullFnctCtr.Add(1)
		return NoTimer, nerr.NullFnct
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.freeHead == NoTimer {
		w.ctrs.NoneAvailCtr.Add(1)
		return NoTimer, nerr.NoneAvail
	}
	id := w.freeHead
	c := &w.cells[id]
	w.freeHead = c.next

	if !c.cleared() {
		w.ctrs.InUseCtr.Add(1)
		return NoTimer, nerr.InUse
	}

	c.prev = NoTimer
	c.next = w.activeHead
	c.owner = owner
	c.fn = fn
	c.ticks = ticks
	if w.activeHead != NoTimer {
		w.cells[w.activeHead].prev = id
	}
	w.activeHead = id

	w.stat.EntryUsedInc()
	return id, nil
}

// Set updates a live timer's callback and remaining tick count. It fails
// with nerr.NullPtr if the cell has already been freed.
func (w *Wheel) Set(id ID, fn Callback, ticks int) error {
	if fn == nil {
		w.ctrs.NullFnctCtr.Add(1)
		return nerr.NullFnct
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if id < 0 || int(id) >= len(w.cells) || w.cells[id].cleared() {
		w.ctrs.NullPtrCtr.Add(1)
		return nerr.NullPtr
	}
	c := &w.cells[id]
	c.fn = fn
	c.ticks = ticks
	return nil
}

// Free returns a timer to the pool. It is idempotent: freeing an
// already-freed (or never-allocated-as-live) cell just bumps a counter.
// When the cell being freed is the one the running sweep is about to visit,
// the sweep cursor is advanced past it first, so a callback that frees its
// own successor can never corrupt the in-progress sweep.
func (w *Wheel) Free(id ID) {
	if id == NoTimer {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.freeLocked(id)
}

func (w *Wheel) freeLocked(id ID) {
	if id < 0 || int(id) >= len(w.cells) {
		return
	}
	c := &w.cells[id]
	if c.cleared() {
		w.ctrs.NotUsedCtr.Add(1)
		return
	}

	if id == w.cursor {
		w.cursor = c.next
	}

	prev, next := c.prev, c.next
	if prev != NoTimer {
		w.cells[prev].next = next
	} else {
		w.activeHead = next
	}
	if next != NoTimer {
		w.cells[next].prev = prev
	}

	c.next = w.freeHead
	w.freeHead = id
	c.fn = nil
	c.owner = nil
	w.stat.EntryUsedDec()
}

// PoolStatGet returns a snapshot of the pool statistics.
func (w *Wheel) PoolStatGet() nerr.PoolStat {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stat
}

// PoolStatResetMaxUsed resets the pool's high-water mark to current usage.
func (w *Wheel) PoolStatResetMaxUsed() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stat.ResetMaxUsed()
}

// Sweep performs one pass over the active list: it decrements every cell's
// remaining tick count, and for every cell that reaches zero, frees the
// cell (before invoking its callback, so the pool always has a spare cell
// available to a callback that needs one) and invokes its callback with the
// global lock held but outside the pool's critical section — so the
// callback may call Get/Set/Free on other timers, including itself, without
// deadlocking against the sweep's own bookkeeping.
//
// A timer requested for N ticks expires at the (N+1)-th sweep following its
// insertion: the decrement-then-test order means the tick during which the
// timer is inserted never counts.
func (w *Wheel) Sweep(ctx context.Context) error {
	ctx, err := w.lock.Acquire(ctx, w)
	if err != nil {
		return err
	}
	defer w.lock.Release(ctx)

	w.mu.Lock()
	w.cursor = w.activeHead
	cur := w.cursor
	w.mu.Unlock()

	for cur != NoTimer {
		w.mu.Lock()
		w.cursor = w.cells[cur].next

		if w.cells[cur].ticks > 0 {
			w.cells[cur].ticks--
			w.mu.Unlock()
		} else {
			owner := w.cells[cur].owner
			fn := w.cells[cur].fn
			w.freeLocked(cur)
			w.mu.Unlock()

			if fn != nil {
				fn(owner)
			} else {
				w.ctrs.NotUsedCtr.Add(1)
			}
		}

		w.mu.Lock()
		cur = w.cursor
		w.mu.Unlock()
	}
	return nil
}

// Run drives Sweep at freqHz until ctx is done. This is the Go realization
// of the shell task (NetTmr_Task): a periodic delay followed by the sweep
// handler, forever.
func (w *Wheel) Run(ctx context.Context, freqHz int) {
	if freqHz <= 0 {
		freqHz = 100
	}
	ticker := time.NewTicker(time.Second / time.Duration(freqHz))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = w.Sweep(ctx)
		}
	}
}
