// Package transport defines the interfaces and abstractions for network
// communication in the kanal substrate. It provides a common contract that all
// transport implementations must fulfill, enabling protocol-agnostic
// communication for both listening endpoints and outbound clients.
//
// The package focuses on:
//   - Defining clear interfaces for dialers, connections and server listeners
//   - Enabling multiple transport implementations (TCP, Unix sockets, UDP
//     datagrams, WebSocket upgrades)
//   - Keeping the connection runtime independent of the wire medium
//
// Key Components:
//
//   - Connection: An opaque duplex handle with send, liveness and close
//     operations. This is the unit managed by the client connection pool.
//
//   - Dialer: Produces Connections to one remote endpoint with an explicit
//     connect timeout; inbound frames are routed to a ReceiveFunc.
//
//   - IRPCServerTransport: Interface for one server-side listening endpoint
//     that routes request frames to a ServerHandleFunc.
package transport
