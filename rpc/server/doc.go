// Package server implements the inbound side of the frame protocol: a
// dispatcher routing frames by type to registered handler functions, served
// over any number of transport endpoints simultaneously.
//
// The package focuses on:
//   - Frame decoding, handler dispatch and response encoding
//   - Correlation id echo so clients can match responses to requests
//   - One listener per configured endpoint (tcp, unix, udp, ws) over a
//     shared handler table
//   - A built-in "ping" handler answering liveness probes with "pong"
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  Endpoints:         []string{"tcp://0.0.0.0:8080", "unix:///tmp/kanal.sock"},
//	  TimeoutSecond:     5,
//	  MaxWorkersPerConn: 16,
//	  LogLevel:          "info",
//	}
//
//	s := server.NewServer(config, serializer.NewJSONSerializer())
//	s.Handle("get", func(req common.Frame) (common.Frame, error) {
//	  return common.NewFrame("result", map[string]any{"value": "42"}), nil
//	})
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("server error: %v", err)
//	}
//
// Thread Safety:
//
//	Handlers may be registered before Serve is called and are invoked
//	concurrently across connections. Serve blocks until Shutdown stops all
//	listeners.
package server
