package udp

import (
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// maxDatagramSize is the largest payload accepted in a single datagram
const maxDatagramSize = 64 * 1024

// datagramConn implements transport.Connection over a connected UDP socket.
// Every frame maps to exactly one datagram, so no length prefix is needed.
type datagramConn struct {
	id       string
	conn     net.Conn
	endpoint string
	recv     transport.ReceiveFunc
	sendMu   sync.Mutex
	alive    atomic.Bool
	closed   sync.Once
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Connection)
// --------------------------------------------------------------------------

func (c *datagramConn) ID() string {
	return c.id
}

func (c *datagramConn) RemoteEndpoint() string {
	return c.endpoint
}

func (c *datagramConn) Send(data []byte) error {
	if len(data) > maxDatagramSize {
		return fmt.Errorf("frame of %d bytes exceeds datagram limit of %d", len(data), maxDatagramSize)
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if _, err := c.conn.Write(data); err != nil {
		c.alive.Store(false)
		return err
	}
	return nil
}

func (c *datagramConn) IsAlive() bool {
	return c.alive.Load()
}

func (c *datagramConn) Close() error {
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

// readLoop reads datagrams until the socket dies and forwards them to the
// receive callback
func (c *datagramConn) readLoop() {
	buf := make([]byte, maxDatagramSize)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			c.alive.Store(false)
			Logger.Debugf("connection %s to %s: read loop stopped: %v", c.id, c.endpoint, err)
			return
		}

		if c.recv != nil {
			data := make([]byte, n)
			copy(data, buf[:n])
			c.recv(data)
		}
	}
}

// --------------------------------------------------------------------------
// Dialer
// --------------------------------------------------------------------------

// udpDialer implements transport.Dialer for UDP datagrams
type udpDialer struct {
	addr string
}

// NewUDPDialer creates a new UDP dialer bound to the given address
func NewUDPDialer(addr string, _ common.SocketConf) transport.Dialer {
	return &udpDialer{addr: addr}
}

func (d *udpDialer) GetName() string {
	return "udp"
}

func (d *udpDialer) Dial(timeout time.Duration, recv transport.ReceiveFunc) (transport.Connection, error) {
	conn, err := net.DialTimeout("udp", d.addr, timeout)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s via udp: %v", common.ErrDialTimeout, d.addr, err)
		}
		return nil, fmt.Errorf("%w: %s via udp: %v", common.ErrDialFailed, d.addr, err)
	}

	c := &datagramConn{
		id:       uuid.NewString(),
		conn:     conn,
		endpoint: d.addr,
		recv:     recv,
	}
	c.alive.Store(true)

	go c.readLoop()

	return c, nil
}
