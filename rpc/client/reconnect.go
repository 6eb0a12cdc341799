package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
)

// ReconnectListener observes the lifecycle of reconnect attempts.
type ReconnectListener interface {
	OnReconnectSuccess()
	OnReconnectFailure(err error)
	OnReconnectExhausted()
}

// ReconnectManager re-establishes lost connections with exponential backoff.
// At most one reconnect cycle runs at a time; further schedule requests while
// a cycle is in flight are coalesced into it. Once the retry budget is spent
// the manager refuses new cycles until its state is reset.
type ReconnectManager struct {
	config common.ReconnectConf
	pool   *ConnectionPool
	dialer transport.Dialer
	recv   transport.ReceiveFunc
	sched  *Scheduler

	reconnecting atomic.Bool
	stopped      atomic.Bool
	exhausted    atomic.Bool

	mu           sync.Mutex
	retryCount   int
	currentDelay time.Duration
	cancelTimer  func()

	initialDelay   time.Duration
	maxDelay       time.Duration
	connectTimeout time.Duration

	listener ReconnectListener
}

// NewReconnectManager creates a manager feeding replacement connections into
// the given pool. The connect timeout is shared with the pool's dial path.
func NewReconnectManager(config common.ReconnectConf, pool *ConnectionPool, dialer transport.Dialer, recv transport.ReceiveFunc, connectTimeout time.Duration, sched *Scheduler) *ReconnectManager {
	initial := time.Duration(config.InitialDelayMs) * time.Millisecond
	return &ReconnectManager{
		config:         config,
		pool:           pool,
		dialer:         dialer,
		recv:           recv,
		sched:          sched,
		initialDelay:   initial,
		currentDelay:   initial,
		maxDelay:       time.Duration(config.MaxDelayMs) * time.Millisecond,
		connectTimeout: connectTimeout,
	}
}

// SetListener registers the lifecycle observer. Must be called before the
// manager is shared between goroutines.
func (r *ReconnectManager) SetListener(listener ReconnectListener) {
	r.listener = listener
}

// ScheduleReconnect arms a reconnect attempt after the current backoff delay.
// The call is a no-op when reconnecting is disabled, the manager is stopped
// or exhausted, or a cycle is already in flight.
func (r *ReconnectManager) ScheduleReconnect() {
	if !r.config.Enabled || r.stopped.Load() || r.exhausted.Load() {
		return
	}
	if !r.reconnecting.CompareAndSwap(false, true) {
		return
	}

	r.mu.Lock()
	delay := r.currentDelay
	r.cancelTimer = r.sched.After(delay, r.attempt)
	r.mu.Unlock()

	Logger.Infof("reconnect scheduled in %s", delay)
}

// IsReconnecting reports whether a reconnect cycle is in flight.
func (r *ReconnectManager) IsReconnecting() bool {
	return r.reconnecting.Load()
}

// IsExhausted reports whether the retry budget was spent.
func (r *ReconnectManager) IsExhausted() bool {
	return r.exhausted.Load()
}

// RetryCount returns the number of consecutive failed attempts in the
// current cycle.
func (r *ReconnectManager) RetryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.retryCount
}

// CurrentDelay returns the backoff delay the next attempt would wait for.
func (r *ReconnectManager) CurrentDelay() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentDelay
}

// ResetState clears the retry counter, the backoff delay and the exhausted
// flag. A cycle already in flight keeps running.
func (r *ReconnectManager) ResetState() {
	r.mu.Lock()
	r.retryCount = 0
	r.currentDelay = r.initialDelay
	r.mu.Unlock()

	r.exhausted.Store(false)
}

// Stop cancels any armed attempt and refuses further scheduling.
func (r *ReconnectManager) Stop() {
	r.stopped.Store(true)

	r.mu.Lock()
	cancel := r.cancelTimer
	r.cancelTimer = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	r.reconnecting.Store(false)
}

// attempt performs one reconnect dial. On success the fresh connection is
// handed to the pool and the backoff state resets; on failure the delay grows
// and the next attempt is armed, until the retry budget is spent.
func (r *ReconnectManager) attempt() {
	if r.stopped.Load() {
		return
	}

	conn, err := r.dialer.Dial(r.connectTimeout, r.recv)
	if err == nil {
		r.mu.Lock()
		r.retryCount = 0
		r.currentDelay = r.initialDelay
		r.cancelTimer = nil
		r.mu.Unlock()

		r.reconnecting.Store(false)
		metricsReconnects.Inc()
		Logger.Infof("reconnected to %s", conn.RemoteEndpoint())

		// Enters the pool as an uncounted idle connection
		r.pool.Release(conn)

		if r.listener != nil {
			r.listener.OnReconnectSuccess()
		}
		return
	}

	metricsReconnectFailures.Inc()

	r.mu.Lock()
	r.retryCount++
	retries := r.retryCount

	if r.config.MaxRetries >= 0 && retries > r.config.MaxRetries {
		r.cancelTimer = nil
		r.mu.Unlock()

		r.exhausted.Store(true)
		r.reconnecting.Store(false)
		Logger.Errorf("reconnect gave up after %d attempts: %v", retries, err)

		if r.listener != nil {
			r.listener.OnReconnectExhausted()
		}
		return
	}

	next := time.Duration(float64(r.currentDelay) * r.config.Multiplier)
	if next > r.maxDelay {
		next = r.maxDelay
	}
	r.currentDelay = next
	r.cancelTimer = r.sched.After(next, r.attempt)
	r.mu.Unlock()

	Logger.Warningf("reconnect attempt %d failed: %v (next in %s)", retries, err, next)

	if r.listener != nil {
		r.listener.OnReconnectFailure(fmt.Errorf("attempt %d: %w", retries, err))
	}
}
