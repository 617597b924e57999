package pool

import (
	"context"
	"time"
)

// startValidator launches the background validator goroutine on the given
// period (§4.5). The goroutine exits when validatorStop is closed.
func (p *Pool) startValidator(interval time.Duration) {
	p.validatorMu.Lock()
	defer p.validatorMu.Unlock()

	if p.validatorStop != nil {
		return // already running
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	p.validatorStop = stop
	p.validatorDone = done

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.runValidationSweep()
			case <-stop:
				return
			}
		}
	}()
}

// stopValidator halts the validator goroutine, if running, and waits for it
// to exit before returning.
func (p *Pool) stopValidator() {
	p.validatorMu.Lock()
	stop := p.validatorStop
	done := p.validatorDone
	p.validatorStop = nil
	p.validatorDone = nil
	p.validatorMu.Unlock()

	if stop == nil {
		return
	}
	close(stop)
	<-done
}

// restartValidator stops the current validator (if any) and starts a fresh
// one at the new interval. A zero interval leaves the validator stopped,
// which matches ValidationInterval's "zero disables the validator" rule.
func (p *Pool) restartValidator(interval time.Duration) {
	p.stopValidator()
	if interval > 0 {
		p.startValidator(interval)
	}
}

// runValidationSweep implements one pass of the validator (§4.5): drain the
// idle queue, filter out dead and expired connections in that order, push
// the survivors back, then top the pool up to MinActive.
//
// Idle-expiry is checked before life-expiry, so a connection that qualifies
// for both is counted under idle_closed. A connection kept by the idle check
// only because the pool is at MinActive is still evicted by the life check
// on the same pass.
func (p *Pool) runValidationSweep() {
	if !p.isInitialized() {
		return
	}
	cfg := p.getConfig()
	idleQ := p.idle.load()

	var drained []Conn
	for {
		c, outcome := idleQ.tryPop()
		if outcome != popOK {
			break
		}
		drained = append(drained, c)
	}

	now := time.Now()

	// Step 2: drop connections that are no longer alive.
	survivors := drained[:0]
	for _, c := range drained {
		if !c.IsAlive() {
			p.detachAndDestroy(c)
			continue
		}
		survivors = append(survivors, c)
	}

	// Step 3: count is the registry size after the dead-connection drops
	// above. Idle eviction below only fires while count stays above
	// MinActive, decrementing as each survivor is evicted.
	count := p.reg.count()
	for _, c := range survivors {
		if count > cfg.MinActive && p.isIdleExpired(c, cfg, now) {
			p.detachAndDestroy(c)
			count--
			saturatingAdd(&p.counters.idleClosed, 1)
			continue
		}
		if p.isLifeExpired(c, cfg, now) {
			p.detachAndDestroy(c)
			count--
			saturatingAdd(&p.counters.lifeClosed, 1)
			continue
		}
		if !idleQ.tryPush(c) {
			// The queue was resized or closed mid-sweep; the connection is
			// still registered and alive, so just let it go rather than
			// leaking it untracked.
			p.detachAndDestroy(c)
			count--
		}
	}

	p.fillPool(context.Background())
}

// isIdleExpired reports whether c has gone unused past MaxIdleTime. The
// caller is responsible for only evicting on this basis while the
// survivor count is still above MinActive (§4.5 step 4).
func (p *Pool) isIdleExpired(c Conn, cfg Config, now time.Time) bool {
	if cfg.MaxIdleTime <= 0 {
		return false
	}
	return now.Sub(c.LastUsedAt()) >= cfg.MaxIdleTime
}

func (p *Pool) isLifeExpired(c Conn, cfg Config, now time.Time) bool {
	if cfg.MaxLifeTime <= 0 {
		return false
	}
	createdAt, ok := p.reg.createdAt(c)
	if !ok {
		return false
	}
	return now.Sub(createdAt) >= cfg.MaxLifeTime
}

// fillPool replenishes the pool up to MinActive (§4.6). It stops at the
// first connector failure (logged, not returned) or the first time the
// creation gate is already held by someone else, rather than contending
// with an in-flight borrower's own creation.
func (p *Pool) fillPool(ctx context.Context) {
	cfg := p.getConfig()

	for p.reg.count() < cfg.MinActive {
		if !p.gate.tryAcquire() {
			return
		}

		conn, err := p.connector.Connect(ctx)
		if err != nil {
			p.gate.releaseHold()
			p.logger.Warn("pool: fill-to-minimum connect failed", "err", err)
			return
		}
		p.reg.attach(conn)
		p.gate.releaseHold()

		idleQ := p.idle.load()
		if !idleQ.tryPush(conn) {
			p.detachAndDestroy(conn)
			return
		}
	}
}
