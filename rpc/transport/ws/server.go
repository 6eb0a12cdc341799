package ws

import (
	"errors"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/transport"
)

const defaultMaxWorkersPerConn = 16

// wsServerTransport implements IRPCServerTransport for upgradeable
// request/response endpoints: plain HTTP until the WebSocket handshake, frames
// as binary messages afterwards.
type wsServerTransport struct {
	handler  transport.ServerHandleFunc
	server   *http.Server
	upgrader websocket.Upgrader
	config   common.ServerConfig
	closed   atomic.Bool
}

// NewWSServerTransport creates a new WebSocket server transport
func NewWSServerTransport() transport.IRPCServerTransport {
	return &wsServerTransport{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *wsServerTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *wsServerTransport) Listen(config common.ServerConfig, addr string) error {
	t.config = config

	host, path := splitAddr(addr)

	mux := http.NewServeMux()
	mux.HandleFunc(path, t.handleUpgrade)

	t.server = &http.Server{Addr: host, Handler: mux}

	Logger.Infof("Starting ws server on %s (path %s)", host, path)

	err := t.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (t *wsServerTransport) Shutdown() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	if t.server != nil {
		return t.server.Close()
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleUpgrade performs the WebSocket handshake and serves frames on the
// upgraded connection until it closes
func (t *wsServerTransport) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := t.upgrader.Upgrade(w, r, nil)
	if err != nil {
		Logger.Errorf("Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	maxWorkers := t.config.MaxWorkersPerConn
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkersPerConn
	}

	// Counting semaphore bounding concurrent handlers per connection
	workerSemaphore := make(chan struct{}, maxWorkers)

	// Mutex protecting writes to the connection
	var writeMu sync.Mutex
	var wg sync.WaitGroup

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !t.closed.Load() && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				Logger.Debugf("Connection closed: %v", err)
			}
			break
		}

		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func(data []byte) {
			defer func() {
				<-workerSemaphore
				wg.Done()
			}()

			resp := t.handler(data)
			if resp == nil {
				return
			}

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteMessage(websocket.BinaryMessage, resp); err != nil {
				Logger.Errorf("Failed to write response: %v", err)
			}
		}(data)
	}

	wg.Wait()
}
