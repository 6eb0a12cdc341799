package server

import (
	"github.com/kanal-io/kanal/rpc/common"
)

// HandlerFunc processes one request frame and returns the response frame.
// Returning an error sends an error frame to the caller instead; returning
// a nil frame without an error acknowledges the request with an "ok" frame.
// For one-way requests the return values are discarded.
type HandlerFunc func(req common.Frame) (common.Frame, error)
