package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
)

const defaultMaxWorkers = 64

// udpServerTransport implements IRPCServerTransport for datagram endpoints.
// Each inbound datagram is one request frame; the response frame is sent back
// to the datagram's source address.
type udpServerTransport struct {
	handler transport.ServerHandleFunc
	conn    net.PacketConn
	closed  atomic.Bool
}

// NewUDPServerTransport creates a new UDP server transport
func NewUDPServerTransport() transport.IRPCServerTransport {
	return &udpServerTransport{}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *udpServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *udpServerTransport) Listen(config common.ServerConfig, addr string) error {
	conn, err := net.ListenPacket("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to create UDP socket: %v", err)
	}
	t.conn = conn

	maxWorkers := config.MaxWorkersPerConn
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}

	Logger.Infof("Starting udp server on %s with %d workers", addr, maxWorkers)

	// Counting semaphore bounding concurrent handlers
	workerSemaphore := make(chan struct{}, maxWorkers)

	// Mutex protecting writes to the shared socket
	var writeMu sync.Mutex

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			Logger.Errorf("Read error: %v", err)
			continue
		}

		// The read buffer is reused, hand the worker its own copy
		data := make([]byte, n)
		copy(data, buf[:n])

		workerSemaphore <- struct{}{}
		go func(data []byte, from net.Addr) {
			defer func() { <-workerSemaphore }()

			resp := t.handler(data)
			if resp == nil {
				return
			}

			writeMu.Lock()
			defer writeMu.Unlock()
			if _, err := conn.WriteTo(resp, from); err != nil {
				Logger.Errorf("Failed to write response to %s: %v", from, err)
			}
		}(data, from)
	}
}

func (t *udpServerTransport) Shutdown() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.conn != nil {
		return t.conn.Close()
	}
	return nil
}
