package pool

import (
	"context"
	"sync"
	"sync/atomic"
)

// popOutcome classifies the result of a pop attempt against an idleQueue.
type popOutcome int

const (
	popOK popOutcome = iota
	popTimeout
	popClosed
	popEmpty
)

// idleQueue is the bounded, blocking FIFO of currently-returned connections
// (§3, §9). It is built on a buffered channel: the buffer gives us
// non-blocking push and O(1) length for free. The data channel itself is
// never closed; a separate signal channel is closed instead, which every
// blocked and every future pop observes as the "closed sentinel".
//
// A resize (§4.7) replaces the whole idleQueue rather than mutating its
// capacity in place, since Go channels cannot be resized.
type idleQueue struct {
	ch        chan Conn
	closed    chan struct{}
	closeOnce sync.Once
}

func newIdleQueue(capacity int) *idleQueue {
	return &idleQueue{
		ch:     make(chan Conn, capacity),
		closed: make(chan struct{}),
	}
}

// pushOutcome classifies the result of a tryPushResult attempt against an
// idleQueue.
type pushOutcome int

const (
	pushOK pushOutcome = iota
	pushFull
	pushClosed
)

// tryPushResult is a non-blocking push that distinguishes why it failed: a
// full queue (pushFull) versus a closed one (pushClosed). Callers that need
// to report different statuses for those two cases should use this instead
// of pairing a separate full() check with tryPush, since the two checks can
// race against a concurrent push/close between them.
func (q *idleQueue) tryPushResult(c Conn) pushOutcome {
	select {
	case <-q.closed:
		return pushClosed
	default:
	}
	select {
	case q.ch <- c:
		return pushOK
	default:
		return pushFull
	}
}

// tryPush is a non-blocking push. It returns false if the queue is full or
// closed, in which case the caller owns destroying c.
func (q *idleQueue) tryPush(c Conn) bool {
	return q.tryPushResult(c) == pushOK
}

// pop blocks until a connection is available, ctx is done, or the queue is
// closed. Callers that want a bounded wait should derive ctx with
// context.WithTimeout before calling pop; a cancelled or expired ctx is
// reported identically as popTimeout (§5: cancellation unblocks the pop "as
// if timed out").
func (q *idleQueue) pop(ctx context.Context) (Conn, popOutcome) {
	select {
	case c := <-q.ch:
		return c, popOK
	case <-q.closed:
		return nil, popClosed
	case <-ctx.Done():
		return nil, popTimeout
	}
}

// tryPop is a non-blocking pop used by the validator to drain the queue
// (§4.5 step 1).
func (q *idleQueue) tryPop() (Conn, popOutcome) {
	select {
	case <-q.closed:
		return nil, popClosed
	default:
	}
	select {
	case c := <-q.ch:
		return c, popOK
	default:
		return nil, popEmpty
	}
}

// close unblocks every current and future waiter with the closed sentinel.
// Idempotent.
func (q *idleQueue) close() {
	q.closeOnce.Do(func() { close(q.closed) })
}

// drainAndClose pops every buffered connection (passing each to destroy),
// then closes the queue. Used by Pool.Close's background shutdown task.
func (q *idleQueue) drainAndClose(destroy func(Conn)) {
	for {
		select {
		case c := <-q.ch:
			destroy(c)
		default:
			q.close()
			return
		}
	}
}

func (q *idleQueue) len() int    { return len(q.ch) }
func (q *idleQueue) empty() bool { return len(q.ch) == 0 }

// atomicQueue holds the pool's current idle queue behind an atomic
// pointer so SetMaxActive can swap it for a freshly sized one without a
// lock on the Borrow/Return hot path.
type atomicQueue struct {
	p atomic.Pointer[idleQueue]
}

func (a *atomicQueue) load() *idleQueue        { return a.p.Load() }
func (a *atomicQueue) store(q *idleQueue)      { a.p.Store(q) }
