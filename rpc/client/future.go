package client

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/kanal-io/kanal/rpc/common"
)

// Future is the single-assignment result of an asynchronous invocation.
// Exactly one completion attempt wins; all later attempts are no-ops that
// report the request as already settled.
type Future struct {
	done     chan struct{}
	resolved atomic.Bool
	frame    common.Frame
	err      error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// complete resolves the future with either a response frame or an error.
// It returns false when the future was already resolved.
func (f *Future) complete(frame common.Frame, err error) bool {
	if !f.resolved.CompareAndSwap(false, true) {
		return false
	}

	// Writes are published to readers by the channel close below.
	f.frame = frame
	f.err = err
	close(f.done)
	return true
}

// Done returns a channel that is closed once the future is resolved.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Result blocks until the future is resolved. The invoker guarantees
// resolution: a matching response, a send failure, the timeout sweep or an
// invoker shutdown settles every pending request.
func (f *Future) Result() (common.Frame, error) {
	<-f.done
	return f.frame, f.err
}

// Await blocks up to the given duration for the future to resolve. When the
// wait elapses first, a request-timeout error is returned; the pending entry
// itself is cleaned up by the invoker's sweep.
func (f *Future) Await(timeout time.Duration) (common.Frame, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.frame, f.err
	case <-timer.C:
		return nil, fmt.Errorf("%w: no response within %s", common.ErrRequestTimeout, timeout)
	}
}
