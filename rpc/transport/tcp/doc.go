// Package tcp provides the TCP implementation of the transport interfaces.
// It contributes only the medium-specific connectors; the shared stream
// plumbing lives in the base package.
package tcp
