// Package rpc provides a multi-transport framed messaging substrate for
// client/server communication. It acts as the communication layer between
// peers, carrying typed frames across network boundaries.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the system,
//     including the Frame protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable
//     implementations (TCP, Unix sockets, UDP, WebSocket).
//
//   - serializer: Frame serialization for converting between Frame objects
//     and byte arrays.
//
//   - client: The outbound connection runtime with connection pooling,
//     automatic reconnects, heartbeat probing and request/response
//     correlation.
//
//   - server: The inbound dispatcher routing frames by type to registered
//     handler functions over any number of listeners.
package rpc
