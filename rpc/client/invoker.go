package client

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/serializer"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/puzpuzpuz/xsync/v3"
)

// PushHandler receives inbound frames that carry no known correlation id
// (unsolicited server push). Delivery is best effort.
type PushHandler func(frame common.Frame)

// pendingRequest is the in-memory record of one awaited response.
type pendingRequest struct {
	id       uint64
	deadline time.Time
	future   *Future
}

// RequestInvoker correlates outbound requests with inbound responses on
// shared connections. It enforces per-request deadlines through a periodic
// sweep and guarantees that every pending request resolves exactly once.
type RequestInvoker struct {
	serializer     serializer.IFrameSerializer
	defaultTimeout time.Duration
	pending        *xsync.MapOf[uint64, *pendingRequest]
	nextID         atomic.Uint64
	closed         atomic.Bool
	cancelSweep    func()
	pushHandler    atomic.Pointer[PushHandler]
}

// NewRequestInvoker creates an invoker and arms its timeout sweep on the
// shared scheduler.
func NewRequestInvoker(ser serializer.IFrameSerializer, config common.RequestConf, sched *Scheduler) *RequestInvoker {
	inv := &RequestInvoker{
		serializer:     ser,
		defaultTimeout: time.Duration(config.DefaultTimeoutMs) * time.Millisecond,
		pending:        xsync.NewMapOf[uint64, *pendingRequest](),
	}

	sweepInterval := time.Duration(config.SweepIntervalMs) * time.Millisecond
	inv.cancelSweep = sched.Every(sweepInterval, inv.sweepExpired)

	return inv
}

// SetPushHandler registers the handler for uncorrelated inbound frames.
func (inv *RequestInvoker) SetPushHandler(handler PushHandler) {
	inv.pushHandler.Store(&handler)
}

// Invoke sends a request frame of the given type over the connection and
// returns a future resolving to the correlated response. A timeout of zero
// falls back to the configured default. The caller never blocks beyond the
// send itself.
func (inv *RequestInvoker) Invoke(conn transport.Connection, msgType string, payload any, timeout time.Duration) *Future {
	future := newFuture()

	if inv.closed.Load() {
		future.complete(nil, fmt.Errorf("%w: invoker closed", common.ErrRequestCancelled))
		return future
	}

	// The frame's type and correlation id are always invoker-assigned;
	// NewFrame strips colliding payload entries.
	id := inv.nextID.Add(1)
	frame := common.NewFrame(msgType, payload)
	frame.SetCorrelationID(id)

	data, err := inv.serializer.Serialize(frame)
	if err != nil {
		future.complete(nil, fmt.Errorf("failed to serialize request: %v", err))
		return future
	}

	if timeout <= 0 {
		timeout = inv.defaultTimeout
	}

	inv.pending.Store(id, &pendingRequest{
		id:       id,
		deadline: time.Now().Add(timeout),
		future:   future,
	})

	// A Close racing the store above has already drained the table and
	// stopped the sweep; the entry must not be left behind unresolved.
	if inv.closed.Load() {
		inv.FailRequest(id, fmt.Errorf("%w: invoker closed", common.ErrRequestCancelled))
		return future
	}

	if err := conn.Send(data); err != nil {
		// The request never reached the wire, fail it right away.
		inv.FailRequest(id, fmt.Errorf("send failed: %v", err))
		return future
	}

	metricsRequestsSent.Inc()
	return future
}

// InvokeOneWay sends a fire-and-forget frame: no correlation id, no pending
// request, no future. Send failures are logged, not raised.
func (inv *RequestInvoker) InvokeOneWay(conn transport.Connection, msgType string, payload any) {
	frame := common.NewFrame(msgType, payload)

	data, err := inv.serializer.Serialize(frame)
	if err != nil {
		Logger.Errorf("failed to serialize one-way frame: %v", err)
		return
	}

	if err := conn.Send(data); err != nil {
		Logger.Warningf("one-way send of %q failed: %v", msgType, err)
	}
}

// CompleteRequest resolves the pending request with the given correlation id.
// It returns false when no such request is pending or it already settled.
func (inv *RequestInvoker) CompleteRequest(id uint64, response common.Frame) bool {
	pr, ok := inv.pending.LoadAndDelete(id)
	if !ok {
		return false
	}
	return pr.future.complete(response, nil)
}

// FailRequest resolves the pending request with a failure instead.
func (inv *RequestInvoker) FailRequest(id uint64, cause error) bool {
	pr, ok := inv.pending.LoadAndDelete(id)
	if !ok {
		return false
	}
	return pr.future.complete(nil, cause)
}

// HandleInbound is the demultiplexing seam between the receive path of a
// connection and the pending-request table. Frames carrying a known
// correlation id settle their request; everything else is handed to the push
// handler.
func (inv *RequestInvoker) HandleInbound(data []byte) {
	var frame common.Frame
	if err := inv.serializer.Deserialize(data, &frame); err != nil {
		Logger.Errorf("failed to deserialize inbound frame: %v", err)
		return
	}

	if id, ok := frame.CorrelationID(); ok {
		if errMsg := frame.Err(); errMsg != "" {
			if !inv.FailRequest(id, fmt.Errorf("remote error: %s", errMsg)) {
				Logger.Warningf("late or duplicate error response for correlation id %d", id)
			}
			return
		}
		if !inv.CompleteRequest(id, frame) {
			Logger.Warningf("late or duplicate response for correlation id %d", id)
		}
		return
	}

	// No correlation id: unsolicited push message
	if h := inv.pushHandler.Load(); h != nil {
		(*h)(frame)
	}
}

// PendingRequestCount returns the number of requests awaiting a response.
func (inv *RequestInvoker) PendingRequestCount() int {
	return inv.pending.Size()
}

// Close stops the timeout sweep and cancels every outstanding request.
// A second call is a no-op.
func (inv *RequestInvoker) Close() {
	if !inv.closed.CompareAndSwap(false, true) {
		return
	}

	inv.cancelSweep()

	inv.pending.Range(func(id uint64, pr *pendingRequest) bool {
		inv.pending.Delete(id)
		pr.future.complete(nil, common.ErrRequestCancelled)
		return true
	})
}

// sweepExpired resolves every pending request whose deadline has passed.
// It shares the single-resolution guard with CompleteRequest/FailRequest, so
// a response racing the sweep settles the request exactly once.
func (inv *RequestInvoker) sweepExpired() {
	now := time.Now()

	inv.pending.Range(func(id uint64, pr *pendingRequest) bool {
		if now.After(pr.deadline) {
			if inv.FailRequest(id, fmt.Errorf("%w: deadline exceeded", common.ErrRequestTimeout)) {
				metricsRequestTimeouts.Inc()
			}
		}
		return true
	})
}
