package transport

import (
	"time"

	"github.com/kanal-io/kanal/rpc/common"
)

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// ReceiveFunc is invoked for every inbound frame payload arriving on a
// Connection. Implementations hand the raw bytes to the demultiplexer of the
// client runtime (correlation-id matching or push handling).
type ReceiveFunc func(data []byte)

// Connection is an opaque duplex transport handle to one remote peer.
// Implementations must be safe for concurrent use.
type Connection interface {
	// ID returns a unique identifier for this connection, used for pool
	// bookkeeping and logging
	ID() string
	// Send writes one framed message to the peer
	Send(data []byte) error
	// IsAlive reports whether the connection is still usable
	IsAlive() bool
	// Close tears the connection down; it is idempotent
	Close() error
	// RemoteEndpoint returns the endpoint this connection is dialed to
	RemoteEndpoint() string
}

// Dialer produces Connections to one remote endpoint on demand. A dial is
// bounded by the given timeout; a timed-out dial never leaks a half-open
// connection.
type Dialer interface {
	// Dial establishes a new Connection, wiring inbound frames to recv
	Dial(timeout time.Duration, recv ReceiveFunc) (Connection, error)
	// GetName returns the name of the transport type (e.g. "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// It is called by a server transport when a request frame is received and
// returns the response payload; a nil response means no reply is sent
// (one-way message).
type ServerHandleFunc func(data []byte) (resp []byte)

// IRPCServerTransport is the interface for one server-side listening endpoint
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every request frame received
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the given address and serves until Shutdown is called
	Listen(config common.ServerConfig, addr string) error
	// Shutdown stops the listener; idempotent
	Shutdown() error
}
