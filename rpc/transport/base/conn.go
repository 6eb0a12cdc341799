package base

import (
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/kanal-io/kanal/rpc/transport"
)

// StreamConn implements transport.Connection on top of a stream-oriented
// net.Conn (tcp, unix). Inbound frames are read by a dedicated goroutine and
// handed to the receive callback; writes are serialized by a mutex.
type StreamConn struct {
	id       string
	conn     net.Conn
	endpoint string
	recv     transport.ReceiveFunc
	sendMu   sync.Mutex
	alive    atomic.Bool
	closed   sync.Once
}

// NewStreamConn wraps an established net.Conn and starts its read pump.
func NewStreamConn(conn net.Conn, endpoint string, recv transport.ReceiveFunc) *StreamConn {
	c := &StreamConn{
		id:       uuid.NewString(),
		conn:     conn,
		endpoint: endpoint,
		recv:     recv,
	}
	c.alive.Store(true)

	go c.readLoop()

	return c
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Connection)
// --------------------------------------------------------------------------

func (c *StreamConn) ID() string {
	return c.id
}

func (c *StreamConn) RemoteEndpoint() string {
	return c.endpoint
}

func (c *StreamConn) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := WriteFrame(c.conn, data); err != nil {
		// A failed write leaves the stream in an undefined state
		c.alive.Store(false)
		return err
	}
	return nil
}

func (c *StreamConn) IsAlive() bool {
	return c.alive.Load()
}

func (c *StreamConn) Close() error {
	var err error
	c.closed.Do(func() {
		c.alive.Store(false)
		err = c.conn.Close()
	})
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readLoop reads frames until the connection dies and forwards them to the
// receive callback. Frames are allocated per read since the callback may hold
// on to them.
func (c *StreamConn) readLoop() {
	for {
		data, err := ReadFrame(c.conn, nil)
		if err != nil {
			c.alive.Store(false)
			Logger.Debugf("connection %s to %s: read loop stopped: %v", c.id, c.endpoint, err)
			return
		}

		if c.recv != nil {
			c.recv(data)
		}
	}
}
