package unix

import (
	"net"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/kanal-io/kanal/rpc/transport/base"
)

// clientConnector implements the IClientConnector interface for Unix sockets
type clientConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

func (c *clientConnector) Connect(addr string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout("unix", addr, timeout)
}

// UpgradeConnection is a no-op for Unix sockets; the TCP tuning options do
// not apply
func (c *clientConnector) UpgradeConnection(conn net.Conn, config common.SocketConf) error {
	return nil
}

// --------------------------------------------------------------------------
// Dialer Factory Method
// --------------------------------------------------------------------------

// NewUnixDialer creates a new Unix socket dialer bound to the given path
func NewUnixDialer(path string, socket common.SocketConf) transport.Dialer {
	return base.NewBaseDialer(&clientConnector{}, path, socket)
}
