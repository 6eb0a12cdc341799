// Package cmd implements the command-line interface for kanal. It provides a
// hierarchical command structure with operations for running the server and
// interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - serve: Commands for starting and configuring the kanal server
//   - call: Commands for sending single frames to a running server
//   - perf: Benchmarking tool measuring request throughput and latency
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See kanal -help for a list of all commands.
package cmd
