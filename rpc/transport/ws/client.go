package ws

import (
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// splitAddr splits "host:port/path" into the host part and the HTTP path the
// upgrade handshake is served on
func splitAddr(addr string) (host, path string) {
	if idx := strings.Index(addr, "/"); idx >= 0 {
		return addr[:idx], addr[idx:]
	}
	return addr, "/"
}

// wsConn implements transport.Connection over an upgraded WebSocket. Frames
// travel as binary WebSocket messages, so no extra length prefix is needed.
type wsConn struct {
	id       string
	conn     *websocket.Conn
	endpoint string
	recv     transport.ReceiveFunc
	sendMu   sync.Mutex
	alive    atomic.Bool
	closed   sync.Once
}

func newWSConn(conn *websocket.Conn, endpoint string, recv transport.ReceiveFunc) *wsConn {
	c := &wsConn{
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

func (c *wsConn) ID() string {
	return c.id
}

func (c *wsConn) RemoteEndpoint() string {
	return c.endpoint
}

func (c *wsConn) Send(data []byte) error {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := c.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		c.alive.Store(false)
		return err
	}
	return nil
}

func (c *wsConn) IsAlive() bool {
	return c.alive.Load()
}

func (c *wsConn) Close() error {
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

func (c *wsConn) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
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

// --------------------------------------------------------------------------
// Dialer
// --------------------------------------------------------------------------

// wsDialer implements transport.Dialer via the WebSocket upgrade handshake
type wsDialer struct {
	addr string
}

// NewWSDialer creates a new WebSocket dialer bound to the given address
// ("host:port" or "host:port/path")
func NewWSDialer(addr string, _ common.SocketConf) transport.Dialer {
	return &wsDialer{addr: addr}
}

func (d *wsDialer) GetName() string {
	return "ws"
}

func (d *wsDialer) Dial(timeout time.Duration, recv transport.ReceiveFunc) (transport.Connection, error) {
	dialer := websocket.Dialer{HandshakeTimeout: timeout}

	conn, _, err := dialer.Dial("ws://"+d.addr, nil)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s via ws: %v", common.ErrDialTimeout, d.addr, err)
		}
		return nil, fmt.Errorf("%w: %s via ws: %v", common.ErrDialFailed, d.addr, err)
	}

	return newWSConn(conn, d.addr, recv), nil
}
