// Package common provides core data structures and utilities shared across
// the kanal networking substrate. It defines fundamental types, configuration
// structures, and protocol elements used by other packages.
//
// The package focuses on:
//   - The Frame protocol element exchanged between clients and servers
//   - Declarative configuration structures for client and server components
//   - The typed error taxonomy of the client connection runtime
//   - Custom logging integrated with the dragonboat logger facility
//
// Key Components:
//
//   - Frame: A map-backed message carrying a type, an optional correlation id
//     and arbitrary payload fields. NewFrame enforces that the reserved
//     type/correlation-id fields are always invoker-assigned.
//
//   - ClientConfig: The fully resolved specification of one outbound client,
//     covering pool limits, reconnect backoff, heartbeat probing and request
//     timeouts. Must be populated before the connection runtime is built.
//
//   - ServerConfig: Declarative list of listening endpoints plus per-connection
//     limits; the endpoint scheme selects the transport implementation.
//
//   - Error sentinels: ErrPoolClosed, ErrPoolExhausted, ErrDialTimeout and
//     friends, usable with errors.Is across the whole runtime.
package common
