package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
)

// unhealthyThreshold is the number of consecutive probe failures after which
// the connection path is declared unhealthy.
const unhealthyThreshold = 3

// HeartbeatListener observes probe outcomes and the unhealthy transition.
type HeartbeatListener interface {
	OnHeartbeatSuccess()
	OnHeartbeatFailure(err error)
	OnConnectionUnhealthy()
}

// HeartbeatManager probes the endpoint at a fixed interval through regular
// pool connections. Consecutive failures accumulate; crossing the threshold
// fires the unhealthy transition exactly once per failure streak.
type HeartbeatManager struct {
	config  common.HeartbeatConf
	pool    *ConnectionPool
	invoker *RequestInvoker
	sched   *Scheduler

	running atomic.Bool

	mu         sync.Mutex
	cancelTick func()
	failures   int

	interval time.Duration
	timeout  time.Duration

	listener HeartbeatListener
}

// NewHeartbeatManager creates a manager probing through the given pool and
// invoker. Call Start to begin probing.
func NewHeartbeatManager(config common.HeartbeatConf, pool *ConnectionPool, invoker *RequestInvoker, sched *Scheduler) *HeartbeatManager {
	return &HeartbeatManager{
		config:   config,
		pool:     pool,
		invoker:  invoker,
		sched:    sched,
		interval: time.Duration(config.IntervalMs) * time.Millisecond,
		timeout:  time.Duration(config.TimeoutMs) * time.Millisecond,
	}
}

// SetListener registers the probe observer. Must be called before Start.
func (h *HeartbeatManager) SetListener(listener HeartbeatListener) {
	h.listener = listener
}

// Start arms the periodic probe. Disabled or already running managers are
// left untouched.
func (h *HeartbeatManager) Start() {
	if !h.config.Enabled {
		return
	}
	if !h.running.CompareAndSwap(false, true) {
		return
	}

	h.mu.Lock()
	h.cancelTick = h.sched.Every(h.interval, h.tick)
	if !h.running.Load() {
		// A Stop raced the arming above and found nothing to cancel yet
		h.cancelTick()
		h.cancelTick = nil
	}
	h.mu.Unlock()

	Logger.Infof("heartbeat started (interval %s, timeout %s)", h.interval, h.timeout)
}

// Stop cancels the periodic probe. A second call is a no-op.
func (h *HeartbeatManager) Stop() {
	if !h.running.CompareAndSwap(true, false) {
		return
	}

	h.mu.Lock()
	if h.cancelTick != nil {
		h.cancelTick()
		h.cancelTick = nil
	}
	h.mu.Unlock()
}

// IsRunning reports whether the probe loop is armed.
func (h *HeartbeatManager) IsRunning() bool {
	return h.running.Load()
}

// ConsecutiveFailures returns the current failure streak length.
func (h *HeartbeatManager) ConsecutiveFailures() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failures
}

// tick performs one probe round trip. A failed acquire counts as a probe
// failure: no usable connection is exactly the condition the heartbeat
// exists to detect.
func (h *HeartbeatManager) tick() {
	if !h.running.Load() {
		return
	}

	conn, err := h.pool.Acquire()
	if err != nil {
		h.fail(fmt.Errorf("%w: acquire failed: %v", common.ErrHeartbeatUnhealthy, err))
		return
	}
	defer h.pool.Release(conn)

	future := h.invoker.Invoke(conn, h.config.ProbeType, nil, h.timeout)
	resp, err := future.Await(h.timeout)
	if err != nil {
		h.fail(fmt.Errorf("%w: probe failed: %v", common.ErrHeartbeatUnhealthy, err))
		return
	}

	if h.config.ExpectedType != "" && resp.Type() != h.config.ExpectedType {
		h.fail(fmt.Errorf("%w: unexpected probe response type %q", common.ErrHeartbeatUnhealthy, resp.Type()))
		return
	}

	h.mu.Lock()
	h.failures = 0
	h.mu.Unlock()

	if h.listener != nil {
		h.listener.OnHeartbeatSuccess()
	}
}

// fail records one probe failure and fires the unhealthy transition when the
// streak reaches the threshold. The streak resets afterwards so the
// transition fires once per streak, not once per tick.
func (h *HeartbeatManager) fail(err error) {
	metricsHeartbeatFailures.Inc()

	h.mu.Lock()
	h.failures++
	streak := h.failures
	if streak >= unhealthyThreshold {
		h.failures = 0
	}
	h.mu.Unlock()

	Logger.Warningf("heartbeat failure %d/%d: %v", streak, unhealthyThreshold, err)

	if h.listener != nil {
		h.listener.OnHeartbeatFailure(err)
	}

	if streak >= unhealthyThreshold {
		Logger.Errorf("connection path unhealthy after %d consecutive heartbeat failures", streak)
		if h.listener != nil {
			h.listener.OnConnectionUnhealthy()
		}
	}
}
