package server

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/serializer"
	"github.com/kanal-io/kanal/rpc/transport"
	"github.com/kanal-io/kanal/rpc/transport/tcp"
	"github.com/kanal-io/kanal/rpc/transport/udp"
	"github.com/kanal-io/kanal/rpc/transport/unix"
	"github.com/kanal-io/kanal/rpc/transport/ws"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc/server")

// NewServerTransport builds the server transport matching the endpoint's
// scheme.
func NewServerTransport(endpoint string) (transport.IRPCServerTransport, string, error) {
	scheme, addr, err := common.SplitEndpoint(endpoint)
	if err != nil {
		return nil, "", err
	}

	switch scheme {
	case "tcp":
		return tcp.NewTCPServerTransport(), addr, nil
	case "unix":
		return unix.NewUnixServerTransport(), addr, nil
	case "udp":
		return udp.NewUDPServerTransport(), addr, nil
	case "ws":
		return ws.NewWSServerTransport(), addr, nil
	default:
		return nil, "", fmt.Errorf("unsupported endpoint scheme: %s", scheme)
	}
}

// NewServer creates a server answering on every configured endpoint.
//
// Usage:
//
//	s := server.NewServer(config, serializer.NewJSONSerializer())
//	s.Handle("get", getHandler)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewServer(config common.ServerConfig, ser serializer.IFrameSerializer) *Server {
	s := &Server{
		config:     config,
		serializer: ser,
		handlers:   xsync.NewMapOf[string, HandlerFunc](),
	}

	// Built-in liveness probe, can be overridden by a later Handle call
	s.Handle("ping", func(common.Frame) (common.Frame, error) {
		return common.NewFrame("pong", nil), nil
	})

	Logger.Infof("created server")
	Logger.Infof(config.String())

	return s
}

// Server dispatches inbound frames by type to registered handlers. One
// transport listener is started per configured endpoint, all sharing the
// same handler table.
type Server struct {
	config     common.ServerConfig
	serializer serializer.IFrameSerializer
	handlers   *xsync.MapOf[string, HandlerFunc]

	mu         sync.Mutex
	transports []transport.IRPCServerTransport

	started atomic.Bool
	closed  atomic.Bool
}

// Handle registers the handler for one frame type, replacing any previous
// registration.
func (s *Server) Handle(msgType string, handler HandlerFunc) {
	s.handlers.Store(msgType, handler)
}

// Serve starts one listener per configured endpoint and blocks until all of
// them have stopped. The first listener error shuts the remaining ones down.
func (s *Server) Serve() error {
	if !s.started.CompareAndSwap(false, true) {
		return fmt.Errorf("server already started")
	}
	if len(s.config.Endpoints) == 0 {
		return fmt.Errorf("no endpoints configured")
	}

	common.InitLoggers(s.config.LogLevel)

	type listenTarget struct {
		transport transport.IRPCServerTransport
		addr      string
	}

	targets := make([]listenTarget, 0, len(s.config.Endpoints))
	for _, endpoint := range s.config.Endpoints {
		t, addr, err := NewServerTransport(endpoint)
		if err != nil {
			return err
		}
		t.RegisterHandler(s.dispatch)
		targets = append(targets, listenTarget{transport: t, addr: addr})
	}

	s.mu.Lock()
	for _, target := range targets {
		s.transports = append(s.transports, target.transport)
	}
	s.mu.Unlock()

	// A Shutdown that raced the setup above closes the listeners now
	if s.closed.Load() {
		return s.Shutdown()
	}

	errCh := make(chan error, len(targets))
	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target listenTarget) {
			defer wg.Done()
			if err := target.transport.Listen(s.config, target.addr); err != nil {
				errCh <- fmt.Errorf("listener on %s failed: %w", target.addr, err)
				// One failing listener takes the whole server down
				if shutdownErr := s.Shutdown(); shutdownErr != nil {
					Logger.Errorf("shutdown after listener failure: %v", shutdownErr)
				}
			}
		}(target)
	}

	wg.Wait()
	close(errCh)
	return <-errCh
}

// Shutdown stops every listener. Safe to call more than once and
// concurrently with Serve.
func (s *Server) Shutdown() error {
	s.closed.Store(true)

	s.mu.Lock()
	transports := s.transports
	s.transports = nil
	s.mu.Unlock()

	var firstErr error
	for _, t := range transports {
		if err := t.Shutdown(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// dispatch decodes one inbound frame, runs the matching handler and encodes
// the response. The request's correlation id is stamped onto whatever goes
// back so the client can match it. Frames without a correlation id are
// one-way and produce no response.
func (s *Server) dispatch(data []byte) []byte {
	var req common.Frame
	if err := s.serializer.Deserialize(data, &req); err != nil {
		Logger.Errorf("failed to deserialize request: %v", err)
		return s.respond(req, common.NewErrorFrame(fmt.Sprintf("malformed request: %v", err)))
	}

	id, expectsResponse := req.CorrelationID()

	handler, ok := s.handlers.Load(req.Type())
	if !ok {
		if !expectsResponse {
			Logger.Warningf("no handler for one-way frame type %q", req.Type())
			return nil
		}
		return s.respond(req, common.NewErrorFrame(fmt.Sprintf("unknown frame type: %s", req.Type())))
	}

	resp, err := handler(req)
	if !expectsResponse {
		if err != nil {
			Logger.Warningf("one-way handler for %q failed: %v", req.Type(), err)
		}
		return nil
	}

	if err != nil {
		resp = common.NewErrorFrame(err.Error())
	} else if resp == nil {
		resp = common.NewFrame("ok", nil)
	}
	resp.SetCorrelationID(id)

	out, serr := s.serializer.Serialize(resp)
	if serr != nil {
		Logger.Errorf("failed to serialize response: %v", serr)
		fallback := common.NewErrorFrame(fmt.Sprintf("failed to serialize response: %v", serr))
		fallback.SetCorrelationID(id)
		out, _ = s.serializer.Serialize(fallback)
	}
	return out
}

// respond encodes an error response, carrying over the request's correlation
// id when it has one.
func (s *Server) respond(req common.Frame, resp common.Frame) []byte {
	if id, ok := req.CorrelationID(); ok {
		resp.SetCorrelationID(id)
	} else {
		// One-way requests get no response, not even errors
		return nil
	}

	out, err := s.serializer.Serialize(resp)
	if err != nil {
		Logger.Errorf("failed to serialize error response: %v", err)
		return nil
	}
	return out
}
