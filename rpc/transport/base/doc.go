// Package base provides the shared client and server plumbing for
// stream-oriented transports (TCP, Unix sockets). Medium-specific packages
// contribute only a connector; the wire framing, the per-connection read
// pump, write serialization and the server-side worker pool all live here.
//
// Wire format: every frame is a 4-byte big-endian length prefix followed by
// the serialized payload.
package base
