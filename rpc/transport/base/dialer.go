package base

import (
	"fmt"
	"net"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("transport/rpc")

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the address, bounded by timeout
	Connect(addr string, timeout time.Duration) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string

	// UpgradeConnection applies protocol-specific settings to an established connection
	UpgradeConnection(conn net.Conn, config common.SocketConf) error
}

// -----------------------------------------------------------
// Dialer implementation
// -----------------------------------------------------------

// baseDialer implements transport.Dialer for stream-oriented media
// independent of the specific transport medium (unix, tcp, etc.)
type baseDialer struct {
	connector IClientConnector
	addr      string
	socket    common.SocketConf
}

// NewBaseDialer creates a dialer bound to one remote address using the
// specified connector
func NewBaseDialer(connector IClientConnector, addr string, socket common.SocketConf) transport.Dialer {
	return &baseDialer{
		connector: connector,
		addr:      addr,
		socket:    socket,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.Dialer)
// --------------------------------------------------------------------------

func (d *baseDialer) GetName() string {
	return d.connector.GetName()
}

func (d *baseDialer) Dial(timeout time.Duration, recv transport.ReceiveFunc) (transport.Connection, error) {
	conn, err := d.connector.Connect(d.addr, timeout)
	if err != nil {
		// A timed out dial is already cancelled by the net package, nothing
		// half-open survives here.
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return nil, fmt.Errorf("%w: %s via %s: %v", common.ErrDialTimeout, d.addr, d.connector.GetName(), err)
		}
		return nil, fmt.Errorf("%w: %s via %s: %v", common.ErrDialFailed, d.addr, d.connector.GetName(), err)
	}

	// Apply protocol-specific settings to the fresh connection
	if err := d.connector.UpgradeConnection(conn, d.socket); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: upgrade of %s connection failed: %v", common.ErrDialFailed, d.connector.GetName(), err)
	}

	c := NewStreamConn(conn, d.addr, recv)
	Logger.Debugf("dialed %s connection %s to %s", d.connector.GetName(), c.ID(), d.addr)
	return c, nil
}
