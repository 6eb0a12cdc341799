// Package ws provides the upgradeable request/response implementation of the
// transport interfaces: an endpoint speaks plain HTTP until the WebSocket
// handshake succeeds, then carries frames as binary WebSocket messages.
package ws
