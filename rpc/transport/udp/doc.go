// Package udp provides the datagram implementation of the transport
// interfaces. Frames map one-to-one onto datagrams, so there is no stream
// framing; payloads are limited to 64 KB.
package udp
