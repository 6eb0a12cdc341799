package client

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// Reconnector is the pool's hook into the reconnect manager. A release of an
// unhealthy connection schedules a replacement dial instead of dialing inline.
type Reconnector interface {
	ScheduleReconnect()
}

// ConnectionPool is a bounded pool of live connections to a single endpoint.
// Idle connections wait in a FIFO channel, borrowed connections are tracked
// until their release, and the total of pool-dialed connections never exceeds
// the configured maximum. Connections handed in from the outside (reconnect
// replacements) are served but not counted against the cap.
type ConnectionPool struct {
	config common.PoolConf
	dialer transport.Dialer
	recv   transport.ReceiveFunc
	sched  *Scheduler

	idle     chan transport.Connection
	borrowed *xsync.MapOf[string, transport.Connection]

	// owned holds the ids of connections this pool dialed itself. Only
	// those count against MaxConnections and decrement total on close.
	owned *xsync.MapOf[string, struct{}]
	total atomic.Int64

	reconnector Reconnector
	closed      atomic.Bool
	closing     chan struct{}

	cancelMaintenance func()

	acquireTimeout time.Duration
	connectTimeout time.Duration
	maxIdleTime    time.Duration
}

// NewConnectionPool creates a pool over the given dialer. No connection is
// dialed up front; the maintenance sweep tops the pool up to MinIdle and
// evicts idle connections that died in place.
func NewConnectionPool(config common.PoolConf, dialer transport.Dialer, recv transport.ReceiveFunc, sched *Scheduler) *ConnectionPool {
	pool := &ConnectionPool{
		config:         config,
		dialer:         dialer,
		recv:           recv,
		sched:          sched,
		idle:           make(chan transport.Connection, config.MaxConnections),
		closing:        make(chan struct{}),
		borrowed:       xsync.NewMapOf[string, transport.Connection](),
		owned:          xsync.NewMapOf[string, struct{}](),
		acquireTimeout: time.Duration(config.AcquireTimeoutMs) * time.Millisecond,
		connectTimeout: time.Duration(config.ConnectTimeoutMs) * time.Millisecond,
		maxIdleTime:    time.Duration(config.MaxIdleTimeMs) * time.Millisecond,
	}

	pool.cancelMaintenance = sched.Every(pool.maxIdleTime/2, pool.maintain)

	return pool
}

// SetReconnector wires the reconnect manager into the release path. Must be
// called before the pool is shared between goroutines.
func (p *ConnectionPool) SetReconnector(rec Reconnector) {
	p.reconnector = rec
}

// Acquire returns a live connection for exclusive use by the caller. The
// lookup order is idle pool, fresh dial within the cap, then a bounded wait
// for a release. Dead idle connections are discarded without consuming the
// wait budget.
func (p *ConnectionPool) Acquire() (transport.Connection, error) {
	if p.closed.Load() {
		return nil, common.ErrPoolClosed
	}

	// Fast path: reuse an idle connection
	for {
		select {
		case conn := <-p.idle:
			if !conn.IsAlive() {
				p.closeConn(conn)
				metricsEvictions.Inc()
				continue
			}
			return p.lend(conn)
		default:
		}
		break
	}

	// No idle connection: dial a new one if the cap allows it
	conn, err := p.tryDial()
	if err == nil {
		return p.lend(conn)
	}
	if err != errPoolAtCapacity {
		return nil, err
	}

	// At capacity: wait for a connection to be released
	timer := time.NewTimer(p.acquireTimeout)
	defer timer.Stop()

	for {
		select {
		case conn := <-p.idle:
			if conn.IsAlive() {
				return p.lend(conn)
			}
			p.closeConn(conn)
			metricsEvictions.Inc()

			// The dead connection freed a slot under the cap
			if fresh, err := p.tryDial(); err == nil {
				return p.lend(fresh)
			} else if err != errPoolAtCapacity {
				return nil, err
			}

		case <-p.closing:
			return nil, common.ErrPoolClosed

		case <-timer.C:
			metricsPoolExhausted.Inc()
			return nil, fmt.Errorf("%w: no connection available within %s", common.ErrPoolExhausted, p.acquireTimeout)
		}
	}
}

// Release returns a borrowed connection to the pool. Unhealthy connections
// are closed and a reconnect is scheduled in their place. A nil connection is
// ignored.
func (p *ConnectionPool) Release(conn transport.Connection) {
	if conn == nil {
		return
	}

	if p.closed.Load() {
		// Releases into a closed pool always close the connection, even
		// when it was never borrowed (reconnect replacements finishing
		// their dial after Close). Connection close is idempotent.
		p.borrowed.Delete(conn.ID())
		p.closeConn(conn)
		return
	}

	p.borrowed.Delete(conn.ID())

	if !conn.IsAlive() {
		p.closeConn(conn)
		metricsEvictions.Inc()
		if p.reconnector != nil {
			p.reconnector.ScheduleReconnect()
		}
		return
	}

	select {
	case p.idle <- conn:
	default:
		// Idle pool full, the surplus connection is closed
		p.closeConn(conn)
	}

	// A Close racing the push above could miss this connection
	if p.closed.Load() {
		p.drainIdle()
	}
}

// Close shuts the pool down: idle connections are closed, borrowed
// connections are closed in place, later Acquire calls fail fast.
// A second call is a no-op.
func (p *ConnectionPool) Close() {
	if !p.closed.CompareAndSwap(false, true) {
		return
	}

	// Wake every Acquire blocked on a release
	close(p.closing)

	p.cancelMaintenance()
	p.drainIdle()

	p.borrowed.Range(func(id string, conn transport.Connection) bool {
		p.borrowed.Delete(id)
		p.closeConn(conn)
		return true
	})
}

// TotalConnections returns the number of live connections dialed and counted
// by this pool.
func (p *ConnectionPool) TotalConnections() int {
	return int(p.total.Load())
}

// IdleConnections returns the number of connections currently waiting in the
// idle pool.
func (p *ConnectionPool) IdleConnections() int {
	return len(p.idle)
}

// ---- internal ----

// errPoolAtCapacity signals that no dial slot is free. Never returned to
// callers, Acquire turns it into a wait.
var errPoolAtCapacity = fmt.Errorf("pool at capacity")

// lend records the connection as borrowed and hands it to the caller.
func (p *ConnectionPool) lend(conn transport.Connection) (transport.Connection, error) {
	p.borrowed.Store(conn.ID(), conn)
	metricsAcquires.Inc()

	// A Close racing the store above must not leak this connection
	if p.closed.Load() {
		if _, ok := p.borrowed.LoadAndDelete(conn.ID()); ok {
			p.closeConn(conn)
		}
		return nil, common.ErrPoolClosed
	}

	return conn, nil
}

// reserveSlot claims one dial slot under MaxConnections. The claim is rolled
// back by the caller when the dial fails.
func (p *ConnectionPool) reserveSlot() bool {
	for {
		cur := p.total.Load()
		if cur >= int64(p.config.MaxConnections) {
			return false
		}
		if p.total.CompareAndSwap(cur, cur+1) {
			return true
		}
	}
}

// tryDial dials a new counted connection if a slot is free.
func (p *ConnectionPool) tryDial() (transport.Connection, error) {
	if !p.reserveSlot() {
		return nil, errPoolAtCapacity
	}

	metricsDials.Inc()
	conn, err := p.dialer.Dial(p.connectTimeout, p.recv)
	if err != nil {
		p.total.Add(-1)
		metricsDialFailures.Inc()
		return nil, err
	}

	p.owned.Store(conn.ID(), struct{}{})

	if p.closed.Load() {
		p.closeConn(conn)
		return nil, common.ErrPoolClosed
	}

	return conn, nil
}

// closeConn closes a connection and releases its dial slot when the pool
// owns it. Externally handed-in connections never touch the counter.
func (p *ConnectionPool) closeConn(conn transport.Connection) {
	if _, ok := p.owned.LoadAndDelete(conn.ID()); ok {
		p.total.Add(-1)
	}

	if err := conn.Close(); err != nil {
		Logger.Warningf("failed to close connection %s: %v", conn.ID(), err)
	}
}

// drainIdle closes every connection currently in the idle pool.
func (p *ConnectionPool) drainIdle() {
	for {
		select {
		case conn := <-p.idle:
			p.closeConn(conn)
		default:
			return
		}
	}
}

// maintain is the periodic sweep: evict idle connections that died in place,
// then top the idle pool back up to MinIdle.
func (p *ConnectionPool) maintain() {
	if p.closed.Load() {
		return
	}

	// One pass over the current idle snapshot
	for i := len(p.idle); i > 0; i-- {
		select {
		case conn := <-p.idle:
			if conn.IsAlive() {
				select {
				case p.idle <- conn:
				default:
					p.closeConn(conn)
				}
			} else {
				p.closeConn(conn)
				metricsEvictions.Inc()
			}
		default:
		}
	}

	// Top up to the idle floor. One failed dial ends the round, the
	// endpoint is likely down and the reconnect path owns that case.
	for len(p.idle) < p.config.MinIdle && !p.closed.Load() {
		conn, err := p.tryDial()
		if err != nil {
			if err != errPoolAtCapacity {
				Logger.Warningf("idle top-up dial failed: %v", err)
			}
			return
		}
		select {
		case p.idle <- conn:
		default:
			p.closeConn(conn)
			return
		}
	}

	if p.closed.Load() {
		p.drainIdle()
	}
}
