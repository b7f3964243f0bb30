// Package netlock is the process-wide network lock: every public entry
// point in the timer, MLDP, and socket packages acquires it before touching
// protocol state and releases it on every exit path.
//
// The lock is re-entrant by token: either the lock itself is reentrant, or
// every caller is restricted to private, lock-free primitives once it's
// held — this repo picked the first option so the BSD facade can call the
// retry-wrapped App helpers, which acquire the lock themselves, without
// deadlocking. The token is an opaque per-goroutine marker carried in a
// context.Context, used only to tell re-entrant acquisitions apart from
// genuinely contending ones.
package netlock

import (
	"context"
	"sync"

	"netstack/internal/nerr"
)

type tokenKey struct{}

// Lock is the global network lock. The zero value is ready to use.
type Lock struct {
	mu    sync.Mutex
	cond  sync.Once
	c     *sync.Cond
	depth int
	owner any
}

func (l *Lock) cv() *sync.Cond {
	l.cond.Do(func() { l.c = sync.NewCond(&l.mu) })
	return l.c
}

// token returns the re-entrancy token already carried by ctx, or false if
// ctx doesn't carry one yet. It never mints one itself: minting has to
// happen exactly once per call chain (in WithToken, called from Acquire),
// or the token handed back to Acquire and the one handed back to the paired
// Release would be two different freshly-allocated pointers that can never
// compare equal.
func token(ctx context.Context) (any, bool) {
	v := ctx.Value(tokenKey{})
	return v, v != nil
}

// WithToken returns a context carrying a re-entrancy token distinct from any
// existing one, for use by the outermost caller of a call chain that may
// re-enter the lock (e.g. the BSD facade calling into an App helper).
func WithToken(ctx context.Context) context.Context {
	return context.WithValue(ctx, tokenKey{}, new(int))
}

// Acquire acquires the lock for ctx's call chain. If ctx doesn't already
// carry a re-entrancy token (i.e. the caller never wrapped it with
// WithToken), Acquire mints one and returns the context carrying it — every
// downstream call in this call chain, including the paired Release, must
// use the returned context so they all see the same token. A second
// Acquire using a context derived from the one Acquire already returned is
// a no-op that just bumps the re-entrancy depth; a different token blocks
// until the current holder releases down to depth zero.
func (l *Lock) Acquire(ctx context.Context, owner any) (context.Context, error) {
	if _, ok := token(ctx); !ok {
		ctx = WithToken(ctx)
	}
	tok, _ := token(ctx)
	cv := l.cv()
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.owner != nil && l.owner != tok {
		cv.Wait()
	}
	l.owner = tok
	l.depth++
	return ctx, nil
}

// Release releases one level of re-entrancy for ctx's token. ctx must be
// the context Acquire returned (or one derived from it); releasing with a
// token-less or mismatched context is a programming error and returns
// nerr.FaultLockAcquire rather than panicking, since every caller is
// expected to check it on the way out.
func (l *Lock) Release(ctx context.Context) error {
	tok, ok := token(ctx)
	cv := l.cv()
	l.mu.Lock()
	defer l.mu.Unlock()
	if !ok || l.owner != tok {
		return nerr.FaultLockAcquire
	}
	l.depth--
	if l.depth <= 0 {
		l.owner = nil
		l.depth = 0
		cv.Signal()
	}
	return nil
}
