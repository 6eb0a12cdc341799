// Package client implements the outbound connection runtime: a bounded
// connection pool with idle reuse and liveness eviction, an exponential
// backoff reconnect manager, a periodic heartbeat probe, and a request
// invoker that correlates responses to requests over shared connections.
//
// The four parts share one Scheduler for their background work and are
// assembled by NewClient. Connections come from a transport.Dialer, so the
// runtime is transport agnostic; the endpoint scheme selects tcp, unix, udp
// or ws.
package client
