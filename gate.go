package pool

import (
	"context"
	"sync"
)

// gate is the creation-gate primitive from §4.3/§9: a single-writer lock
// with an observer wait distinct from acquire. A borrower that only wants
// to know "is anyone creating a connection right now" calls wait, which
// never itself claims the gate; only the connection-creating goroutine
// calls tryAcquire/releaseHold.
//
// It is implemented as a mutex guarding a held flag plus a one-shot signal
// channel that gets replaced every time the holder releases — a broadcast
// that every waiter can select on exactly once.
type gate struct {
	mu      sync.Mutex
	held    bool
	release chan struct{}
}

func newGate() *gate {
	return &gate{release: make(chan struct{})}
}

// wait blocks until the gate is free or ctx is done. It does not itself
// acquire the gate, so the caller must still race tryAcquire against other
// goroutines after wait returns.
func (g *gate) wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if !g.held {
			g.mu.Unlock()
			return nil
		}
		ch := g.release
		g.mu.Unlock()

		select {
		case <-ch:
			// Released; loop to re-check, since another goroutine may have
			// re-acquired the gate between the close and our wakeup.
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// tryAcquire claims the gate for the caller. It never blocks. The caller
// must call releaseHold exactly once after a successful acquire.
func (g *gate) tryAcquire() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held {
		return false
	}
	g.held = true
	return true
}

// releaseHold releases the gate and wakes every goroutine parked in wait.
func (g *gate) releaseHold() {
	g.mu.Lock()
	g.held = false
	ch := g.release
	g.release = make(chan struct{})
	g.mu.Unlock()
	close(ch)
}

// acquireBlocking waits for the gate to be free and then claims it,
// retrying if another goroutine wins the race. Used where the caller
// genuinely wants a connection created rather than just observing the
// outcome (the borrow create/substitute path).
func (g *gate) acquireBlocking(ctx context.Context) error {
	for {
		if err := g.wait(ctx); err != nil {
			return err
		}
		if g.tryAcquire() {
			return nil
		}
	}
}
