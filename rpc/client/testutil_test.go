package client

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kanal-io/kanal/rpc/transport"
)

// fakeConn is an in-memory transport.Connection for runtime tests. Frames
// written via Send are recorded and optionally answered through the onSend
// hook of the owning dialer.
type fakeConn struct {
	id     string
	recv   transport.ReceiveFunc
	dialer *fakeDialer

	alive  atomic.Bool
	closed atomic.Bool

	mu      sync.Mutex
	sendErr error
	sent    [][]byte
}

func (c *fakeConn) ID() string             { return c.id }
func (c *fakeConn) IsAlive() bool          { return c.alive.Load() }
func (c *fakeConn) RemoteEndpoint() string { return "fake://" + c.id }

func (c *fakeConn) Send(data []byte) error {
	c.mu.Lock()
	if c.sendErr != nil {
		err := c.sendErr
		c.mu.Unlock()
		return err
	}
	c.sent = append(c.sent, data)
	c.mu.Unlock()

	if c.dialer != nil {
		if onSend := c.dialer.onSendFn(); onSend != nil {
			onSend(c, data)
		}
	}
	return nil
}

func (c *fakeConn) Close() error {
	c.alive.Store(false)
	c.closed.Store(true)
	return nil
}

func (c *fakeConn) kill() { c.alive.Store(false) }

func (c *fakeConn) setSendErr(err error) {
	c.mu.Lock()
	c.sendErr = err
	c.mu.Unlock()
}

func (c *fakeConn) lastSent() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.sent) == 0 {
		return nil
	}
	return c.sent[len(c.sent)-1]
}

// fakeDialer hands out fakeConns. Dial failures are scripted through failNext.
type fakeDialer struct {
	mu        sync.Mutex
	seq       int
	conns     []*fakeConn
	failNext  int // number of upcoming dials that fail, -1 means all
	dialCount int
	onSend    func(c *fakeConn, data []byte)
}

func newFakeDialer() *fakeDialer { return &fakeDialer{} }

func (d *fakeDialer) GetName() string { return "fake" }

func (d *fakeDialer) Dial(_ time.Duration, recv transport.ReceiveFunc) (transport.Connection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dialCount++
	if d.failNext != 0 {
		if d.failNext > 0 {
			d.failNext--
		}
		return nil, fmt.Errorf("scripted dial failure")
	}

	d.seq++
	conn := &fakeConn{
		id:     fmt.Sprintf("fake-%d", d.seq),
		recv:   recv,
		dialer: d,
	}
	conn.alive.Store(true)
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) newExternalConn(recv transport.ReceiveFunc) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seq++
	conn := &fakeConn{
		id:     fmt.Sprintf("ext-%d", d.seq),
		recv:   recv,
		dialer: d,
	}
	conn.alive.Store(true)
	return conn
}

func (d *fakeDialer) setFailNext(n int) {
	d.mu.Lock()
	d.failNext = n
	d.mu.Unlock()
}

func (d *fakeDialer) setOnSend(fn func(c *fakeConn, data []byte)) {
	d.mu.Lock()
	d.onSend = fn
	d.mu.Unlock()
}

func (d *fakeDialer) onSendFn() func(c *fakeConn, data []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.onSend
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dialCount
}

// fakeReconnector records reconnect scheduling requests from the pool.
type fakeReconnector struct {
	calls atomic.Int64
}

func (r *fakeReconnector) ScheduleReconnect() { r.calls.Add(1) }

// recordingReconnectListener counts reconnect lifecycle events.
type recordingReconnectListener struct {
	successes atomic.Int64
	failures  atomic.Int64
	exhausted atomic.Int64
}

func (l *recordingReconnectListener) OnReconnectSuccess()      { l.successes.Add(1) }
func (l *recordingReconnectListener) OnReconnectFailure(error) { l.failures.Add(1) }
func (l *recordingReconnectListener) OnReconnectExhausted()    { l.exhausted.Add(1) }

// recordingHeartbeatListener counts heartbeat outcomes.
type recordingHeartbeatListener struct {
	successes atomic.Int64
	failures  atomic.Int64
	unhealthy atomic.Int64
}

func (l *recordingHeartbeatListener) OnHeartbeatSuccess()      { l.successes.Add(1) }
func (l *recordingHeartbeatListener) OnHeartbeatFailure(error) { l.failures.Add(1) }
func (l *recordingHeartbeatListener) OnConnectionUnhealthy()   { l.unhealthy.Add(1) }
