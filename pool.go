package pool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Conn is the opaque connection capability (§6.1). Implementations are
// expected to be pointer-backed so registry identity works as intended.
type Conn interface {
	// IsAlive reports whether the connection is still usable. Must not
	// suspend.
	IsAlive() bool
	// Close releases the connection's underlying resources. May suspend;
	// must be idempotent; errors are logged, never propagated.
	Close() error
	// LastUsedAt returns when the connection was last used for work. The
	// connection itself is responsible for updating this after each use;
	// the validator only reads it.
	LastUsedAt() time.Time
}

// Resetter is an optional capability a Conn may implement. When
// Config.ResetConnections is set, Borrow calls Reset on a connection taken
// from the idle queue before handing it to the caller. A connection that
// Borrow creates fresh is handed out without Reset.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Connector produces new connections from whatever configuration value the
// embedding application closed over (§6.2).
type Connector interface {
	Connect(ctx context.Context) (Conn, error)
}

// ConnectorFunc adapts a plain function to a Connector.
type ConnectorFunc func(ctx context.Context) (Conn, error)

func (f ConnectorFunc) Connect(ctx context.Context) (Conn, error) { return f(ctx) }

// ReturnStatus is the outcome reported by Return (§4.2). Return never fails
// the caller; it always concludes in one of these states.
type ReturnStatus int

const (
	StatusOK ReturnStatus = iota
	StatusPoolNotInitialized
	StatusNotPartOfPool
	StatusLimitReached
	StatusDeadConnection
	StatusMaxLifeTime
	StatusPoolClosed
)

func (s ReturnStatus) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusPoolNotInitialized:
		return "POOL-NOT-INITIALIZED"
	case StatusNotPartOfPool:
		return "NOT-PART-OF-POOL"
	case StatusLimitReached:
		return "LIMIT-REACHED"
	case StatusDeadConnection:
		return "DEAD-CONNECTION"
	case StatusMaxLifeTime:
		return "MAX-LIFE-TIME"
	case StatusPoolClosed:
		return "POOL-CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Pool is the façade (§2.8): it orchestrates the registry, idle queue,
// creation gate, counters and validator behind Borrow/Return/Close.
type Pool struct {
	connector Connector
	logger    *slog.Logger

	cfgMu sync.RWMutex
	cfg   Config

	stateMu     sync.Mutex
	initialized bool

	reg  *registry
	idle atomicQueue
	gate *gate

	validatorMu   sync.Mutex
	validatorStop chan struct{}
	validatorDone chan struct{}

	counters counters
}

// Option configures optional Pool behavior.
type Option func(*Pool)

// WithLogger injects a structured logger used for the errors §7 says are
// "suppressed (logged optionally)" — swallowed connector/close failures
// during fill-pool, validation, and shutdown.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		if l != nil {
			p.logger = l
		}
	}
}

// New constructs an uninitialized Pool. Call Init to start it.
func New(connector Connector, cfg Config, opts ...Option) (*Pool, error) {
	if connector == nil {
		return nil, fmt.Errorf("%w: connector must not be nil", ErrInvalidConfig)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.MinActive > cfg.MaxActive { // I4
		cfg.MinActive = cfg.MaxActive
	}

	p := &Pool{
		connector: connector,
		cfg:       cfg,
		reg:       newRegistry(),
		gate:      newGate(),
		logger:    slog.Default(),
	}
	p.idle.store(newIdleQueue(cfg.MaxActive))

	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Init brings the pool to the active lifecycle state: it provisions the
// idle queue, starts the validator (if enabled), and fills to MinActive. A
// second Init on an already-initialized pool is a no-op.
func (p *Pool) Init(ctx context.Context) error {
	p.stateMu.Lock()
	if p.initialized {
		p.stateMu.Unlock()
		return nil
	}
	p.initialized = true
	p.stateMu.Unlock()

	cfg := p.getConfig()
	p.idle.store(newIdleQueue(cfg.MaxActive))

	if cfg.ValidationInterval > 0 {
		p.startValidator(cfg.ValidationInterval)
	}

	p.fillPool(ctx)
	return nil
}

// Borrow checks out a live connection (§4.1, exposed as `pop` in the
// spec's vocabulary for subclass use). It fails with ErrPoolClosed,
// ErrBorrowTimeout, a *ConnectorError, or a *ResetError.
func (p *Pool) Borrow(ctx context.Context) (Conn, error) {
	cfg := p.getConfig()

	if cfg.MaxWaitTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.MaxWaitTime)
		defer cancel()
	}

	for {
		if !p.isInitialized() {
			return nil, ErrPoolClosed
		}

		// Re-read on every pass so a restart after a resize sees the new
		// MaxActive.
		cfg = p.getConfig()
		idleQ := p.idle.load()

		if conn, outcome := idleQ.tryPop(); outcome == popOK {
			return p.afterPop(ctx, conn, cfg)
		}

		// Nothing idle right now. If there's room under the cap, queue up
		// on the creation gate rather than parking on the idle queue: a
		// borrower with room to create must eventually get its own turn to
		// create, which a plain idle-queue wait can't guarantee (the
		// connection the gate holder creates goes straight to that
		// borrower, never through the idle queue).
		if p.reg.count() < cfg.MaxActive {
			if err := p.gate.acquireBlocking(ctx); err != nil {
				return nil, translateWaitErr(err)
			}

			if p.reg.count() >= cfg.MaxActive {
				// Lost the race for the last slot while waiting on the
				// gate; release and re-evaluate from the top.
				p.gate.releaseHold()
				continue
			}

			conn, err := p.connector.Connect(ctx)
			if err != nil {
				p.gate.releaseHold()
				return nil, translateWaitErr(err)
			}
			p.reg.attach(conn)
			p.gate.releaseHold()
			return conn, nil
		}

		// At capacity: the only way forward is someone else returning a
		// connection, a resize growing the cap, or the wait timing out.
		wasEmpty := idleQ.empty()
		start := time.Now()
		conn, outcome := idleQ.pop(ctx)
		if wasEmpty {
			p.counters.recordWait(time.Since(start))
		}

		switch outcome {
		case popClosed:
			// The idle queue was replaced by a resize, or the pool is
			// closing. Restart from the top so we either land on the new
			// queue or observe the pool as closed.
			continue
		case popTimeout:
			return nil, ErrBorrowTimeout
		case popOK:
			return p.afterPop(ctx, conn, cfg)
		default:
			return nil, fmt.Errorf("pool: unexpected pop outcome %d", outcome)
		}
	}
}

// afterPop applies test-on-borrow, lifetime eviction, and reset to a
// connection freshly popped from idle, substituting through the creation
// path when the popped connection must be discarded.
func (p *Pool) afterPop(ctx context.Context, conn Conn, cfg Config) (Conn, error) {
	if cfg.TestOnBorrow && !conn.IsAlive() {
		p.detachAndDestroy(conn)
		return p.substitute(ctx)
	}

	if cfg.MaxLifeTime > 0 {
		if createdAt, ok := p.reg.createdAt(conn); ok && time.Since(createdAt) >= cfg.MaxLifeTime {
			p.detachAndDestroy(conn)
			return p.substitute(ctx)
		}
	}

	if cfg.ResetConnections {
		if r, ok := conn.(Resetter); ok {
			if err := r.Reset(ctx); err != nil {
				// Reset errors propagate rather than trigger a retry
				// against another idle connection (Open Question in §9:
				// "the source propagates; we follow").
				p.detachAndDestroy(conn)
				return nil, &ResetError{Err: err}
			}
		}
	}

	return conn, nil
}

// substitute performs a single creation-path substitution for a connection
// that was just discarded (dead-on-borrow or lifetime-expired).
func (p *Pool) substitute(ctx context.Context) (Conn, error) {
	conn, err := p.createConnection(ctx)
	if err != nil {
		return nil, translateWaitErr(err)
	}
	return conn, nil
}

// createConnection runs the creation path: wait for the gate, claim it,
// call the connector, register the result.
func (p *Pool) createConnection(ctx context.Context) (Conn, error) {
	if err := p.gate.acquireBlocking(ctx); err != nil {
		return nil, err
	}
	defer p.gate.releaseHold()

	conn, err := p.connector.Connect(ctx)
	if err != nil {
		return nil, &ConnectorError{Err: err}
	}
	h := p.reg.attach(conn)
	p.logger.Debug("pool: created connection", "handle", h)
	return conn, nil
}

func (p *Pool) detachAndDestroy(c Conn) {
	p.reg.detach(c)
	p.destroyAsync(c)
}

func (p *Pool) destroyAsync(c Conn) {
	go func() {
		if err := c.Close(); err != nil {
			p.logger.Warn("pool: connection close failed", "err", err)
		}
	}()
}

// Return transfers ownership of a connection back to the pool (§4.2,
// exposed as `push`). It never fails; it reports what happened to conn.
func (p *Pool) Return(conn Conn) ReturnStatus {
	if conn == nil {
		return StatusNotPartOfPool
	}

	if !p.isInitialized() {
		p.destroyAsync(conn)
		return StatusPoolNotInitialized
	}

	if !p.reg.contains(conn) {
		p.destroyAsync(conn)
		return StatusNotPartOfPool
	}

	cfg := p.getConfig()
	idleQ := p.idle.load()

	if cfg.TestOnReturn && !conn.IsAlive() {
		p.detachAndDestroy(conn)
		return StatusDeadConnection
	}

	if cfg.MaxLifeTime > 0 {
		if createdAt, ok := p.reg.createdAt(conn); ok && time.Since(createdAt) >= cfg.MaxLifeTime {
			p.reg.detach(conn)
			p.destroyAsync(conn)
			saturatingAdd(&p.counters.lifeClosed, 1)
			return StatusMaxLifeTime
		}
	}

	// A single push attempt, rather than a separate full() pre-check
	// followed by tryPush, so the full-vs-closed distinction is derived
	// from one atomic outcome instead of two checks that a concurrent
	// Return could race between.
	switch idleQ.tryPushResult(conn) {
	case pushOK:
		return StatusOK
	case pushFull:
		p.detachAndDestroy(conn)
		return StatusLimitReached
	default:
		p.detachAndDestroy(conn)
		return StatusPoolClosed
	}
}

// Close is idempotent: it stops accepting borrows, stops the validator,
// empties the registry, and drains the idle queue in the background
// without blocking the caller (§4.4).
func (p *Pool) Close() error {
	p.stateMu.Lock()
	if !p.initialized {
		p.stateMu.Unlock()
		return nil
	}
	p.initialized = false
	p.stateMu.Unlock()

	p.stopValidator()
	p.reg.reset()

	idleQ := p.idle.load()
	go idleQ.drainAndClose(func(c Conn) {
		if err := c.Close(); err != nil {
			p.logger.Warn("pool: connection close failed during shutdown", "err", err)
		}
	})

	return nil
}

// SetMaxActive resizes the pool live (§4.7). Connections already borrowed
// are never revoked; any excess drains via Return (LIMIT-REACHED) as
// borrows complete.
func (p *Pool) SetMaxActive(n int) error {
	if n < 1 {
		return fmt.Errorf("%w: max_active must be >= 1, got %d", ErrInvalidConfig, n)
	}

	p.cfgMu.Lock()
	old := p.cfg.MaxActive
	p.cfg.MaxActive = n
	if p.cfg.MinActive > n {
		p.cfg.MinActive = n
	}
	p.cfgMu.Unlock()

	if old == n || !p.isInitialized() {
		return nil
	}

	oldQ := p.idle.load()
	newQ := newIdleQueue(n)

drain:
	for {
		select {
		case c := <-oldQ.ch:
			if !newQ.tryPush(c) {
				p.detachAndDestroy(c)
			}
		default:
			break drain
		}
	}

	p.idle.store(newQ)
	oldQ.close()
	return nil
}

// SetMinActive sets the warm minimum, clamping to MaxActive (I4).
func (p *Pool) SetMinActive(n int) error {
	if n < 0 {
		return fmt.Errorf("%w: min_active must be >= 0, got %d", ErrInvalidConfig, n)
	}
	p.cfgMu.Lock()
	if n > p.cfg.MaxActive {
		n = p.cfg.MaxActive
	}
	p.cfg.MinActive = n
	p.cfgMu.Unlock()
	return nil
}

// SetMaxWaitTime sets the borrow timeout. Zero disables it.
func (p *Pool) SetMaxWaitTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: max_wait_time must be >= 0, got %s", ErrInvalidConfig, d)
	}
	p.cfgMu.Lock()
	p.cfg.MaxWaitTime = d
	p.cfgMu.Unlock()
	return nil
}

// SetValidationInterval changes the validator period, restarting the
// validator goroutine if the pool is initialized.
func (p *Pool) SetValidationInterval(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: validation_interval must be >= 0, got %s", ErrInvalidConfig, d)
	}
	p.cfgMu.Lock()
	p.cfg.ValidationInterval = d
	p.cfgMu.Unlock()

	if p.isInitialized() {
		p.restartValidator(d)
	}
	return nil
}

// SetMaxIdleTime sets the idle-eviction threshold. Zero disables it.
func (p *Pool) SetMaxIdleTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: max_idle_time must be >= 0, got %s", ErrInvalidConfig, d)
	}
	p.cfgMu.Lock()
	p.cfg.MaxIdleTime = d
	p.cfgMu.Unlock()
	return nil
}

// SetMaxLifeTime sets the age-eviction threshold. Zero disables it.
func (p *Pool) SetMaxLifeTime(d time.Duration) error {
	if d < 0 {
		return fmt.Errorf("%w: max_life_time must be >= 0, got %s", ErrInvalidConfig, d)
	}
	p.cfgMu.Lock()
	p.cfg.MaxLifeTime = d
	p.cfgMu.Unlock()
	return nil
}

// SetTestOnBorrow toggles liveness checking on Borrow.
func (p *Pool) SetTestOnBorrow(v bool) {
	p.cfgMu.Lock()
	p.cfg.TestOnBorrow = v
	p.cfgMu.Unlock()
}

// SetTestOnReturn toggles liveness checking on Return.
func (p *Pool) SetTestOnReturn(v bool) {
	p.cfgMu.Lock()
	p.cfg.TestOnReturn = v
	p.cfgMu.Unlock()
}

// SetResetConnections toggles calling Conn.Reset on borrow.
func (p *Pool) SetResetConnections(v bool) {
	p.cfgMu.Lock()
	p.cfg.ResetConnections = v
	p.cfgMu.Unlock()
}

// Config returns a copy of the pool's current configuration.
func (p *Pool) Config() Config { return p.getConfig() }

// Stats returns a point-in-time snapshot (§4.8).
func (p *Pool) Stats() Stats {
	cfg := p.getConfig()
	total := p.reg.count()
	idle := p.idle.load().len()

	return Stats{
		MaxActive:    cfg.MaxActive,
		TotalCount:   total,
		Idle:         idle,
		InUse:        total - idle,
		WaitCount:    p.counters.waitCount.Load(),
		WaitDuration: time.Duration(p.counters.waitDurationNanos.Load()),
		IdleClosed:   p.counters.idleClosed.Load(),
		LifeClosed:   p.counters.lifeClosed.Load(),
	}
}

// TotalCount returns the number of connections currently owned by the pool.
func (p *Pool) TotalCount() int { return p.reg.count() }

// IdleCount returns the number of connections currently sitting idle.
func (p *Pool) IdleCount() int { return p.idle.load().len() }

func (p *Pool) isInitialized() bool {
	p.stateMu.Lock()
	defer p.stateMu.Unlock()
	return p.initialized
}

func (p *Pool) getConfig() Config {
	p.cfgMu.RLock()
	defer p.cfgMu.RUnlock()
	return p.cfg
}

// translateWaitErr maps context cancellation/expiry (from the gate wait,
// the idle pop, or a connector call) onto ErrBorrowTimeout, per §5's "a
// borrower may be cancelled while awaiting idle; the cancellation unblocks
// the pop as if timed out".
func translateWaitErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrBorrowTimeout
	}
	var connErr *ConnectorError
	if errors.As(err, &connErr) {
		return err
	}
	return &ConnectorError{Err: err}
}
