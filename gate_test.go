package pool

import (
	"context"
	"testing"
	"time"
)

func TestGateAcquireExcludesConcurrentHolders(t *testing.T) {
	g := newGate()
	if !g.tryAcquire() {
		t.Fatal("tryAcquire() = false on free gate, want true")
	}
	if g.tryAcquire() {
		t.Fatal("tryAcquire() = true while already held, want false")
	}
	g.releaseHold()
	if !g.tryAcquire() {
		t.Fatal("tryAcquire() = false after release, want true")
	}
	g.releaseHold()
}

func TestGateWaitUnblocksOnRelease(t *testing.T) {
	g := newGate()
	if !g.tryAcquire() {
		t.Fatal("tryAcquire() = false, want true")
	}

	done := make(chan struct{})
	go func() {
		if err := g.wait(context.Background()); err != nil {
			t.Errorf("wait() = %v, want nil", err)
		}
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("wait returned before release")
	default:
	}

	g.releaseHold()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("wait did not unblock after release")
	}
}

func TestGateWaitRespectsContext(t *testing.T) {
	g := newGate()
	g.tryAcquire()
	defer g.releaseHold()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := g.wait(ctx); err == nil {
		t.Error("wait() = nil on expired context, want an error")
	}
}

func TestGateAcquireBlockingSerializesCallers(t *testing.T) {
	g := newGate()
	order := make(chan int, 2)

	if err := g.acquireBlocking(context.Background()); err != nil {
		t.Fatalf("acquireBlocking: %v", err)
	}

	go func() {
		if err := g.acquireBlocking(context.Background()); err != nil {
			return
		}
		order <- 2
		g.releaseHold()
	}()

	time.Sleep(10 * time.Millisecond)
	order <- 1
	g.releaseHold()

	first := <-order
	second := <-order
	if first != 1 || second != 2 {
		t.Errorf("order = %d,%d, want 1,2", first, second)
	}
}
