package common

import "errors"

// --------------------------------------------------------------------------
// Error taxonomy of the connection runtime
// --------------------------------------------------------------------------

var (
	// ErrDialFailed is returned when the remote peer refused or was unreachable
	ErrDialFailed = errors.New("dial failed")

	// ErrDialTimeout is returned when a dial exceeded its connect timeout.
	// The in-flight attempt is always actively cancelled alongside this error.
	ErrDialTimeout = errors.New("dial timed out")

	// ErrPoolClosed is returned for operations on a pool after shutdown
	ErrPoolClosed = errors.New("connection pool closed")

	// ErrPoolExhausted is returned when an acquire wait exceeded its budget
	// while the pool was at capacity
	ErrPoolExhausted = errors.New("connection pool exhausted")

	// ErrRequestTimeout is returned when no matching response arrived before
	// the request deadline
	ErrRequestTimeout = errors.New("request timed out")

	// ErrRequestCancelled is returned for requests still pending when the
	// invoker was closed
	ErrRequestCancelled = errors.New("request cancelled")

	// ErrReconnectExhausted signals that the reconnect retry budget is spent
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")

	// ErrHeartbeatUnhealthy signals three consecutive failed liveness probes
	ErrHeartbeatUnhealthy = errors.New("endpoint unhealthy")
)
