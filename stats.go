package pool

import (
	"sync/atomic"
	"time"
)

// counterSaturateAt bounds the monotone counters well below the signed
// 64-bit range. An add that would pass it resets the counter to just the
// amount being added instead of letting the next add wrap negative (§9: "Counter
// overflow: monotone counters reset to a sane state on reaching the
// integer/float cap rather than wrapping").
const counterSaturateAt = int64(1) << 62

// counters holds the monotone pool-wide totals from §3: wait_count,
// wait_duration, idle_closed, life_closed. All are overflow-safe.
type counters struct {
	waitCount         atomic.Int64
	waitDurationNanos atomic.Int64
	idleClosed        atomic.Int64
	lifeClosed        atomic.Int64
}

func saturatingAdd(c *atomic.Int64, delta int64) {
	for {
		cur := c.Load()
		next := cur + delta
		if next < cur || next > counterSaturateAt {
			next = delta
		}
		if c.CompareAndSwap(cur, next) {
			return
		}
	}
}

// recordWait is called exactly when a borrower actually blocked waiting on
// the idle queue (P6).
func (c *counters) recordWait(d time.Duration) {
	saturatingAdd(&c.waitCount, 1)
	saturatingAdd(&c.waitDurationNanos, int64(d))
}

// Stats is a point-in-time snapshot of pool statistics (§4.8). InUse may
// transiently exceed MaxActive during resize-down convergence; this is by
// design (§4.7).
type Stats struct {
	MaxActive    int
	TotalCount   int
	Idle         int
	InUse        int
	WaitCount    int64
	WaitDuration time.Duration
	IdleClosed   int64
	LifeClosed   int64
}
