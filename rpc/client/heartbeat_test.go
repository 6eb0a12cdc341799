package client

import (
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/kanal-io/kanal/rpc/serializer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeartbeatConf() common.HeartbeatConf {
	return common.HeartbeatConf{
		Enabled:      true,
		IntervalMs:   20,
		TimeoutMs:    100,
		ProbeType:    "ping",
		ExpectedType: "pong",
	}
}

// newTestHeartbeat wires a heartbeat manager over a fake dialer. The probe
// responses are scripted through the dialer's onSend hook.
func newTestHeartbeat(t *testing.T, conf common.HeartbeatConf, dialer *fakeDialer) (*HeartbeatManager, *recordingHeartbeatListener) {
	t.Helper()
	ser := serializer.NewJSONSerializer()
	sched := NewScheduler()
	inv := NewRequestInvoker(ser, testRequestConf(), sched)
	pool := NewConnectionPool(testPoolConf(2), dialer, inv.HandleInbound, sched)
	hb := NewHeartbeatManager(conf, pool, inv, sched)

	listener := &recordingHeartbeatListener{}
	hb.SetListener(listener)

	t.Cleanup(func() {
		hb.Stop()
		inv.Close()
		pool.Close()
		sched.Stop()
	})

	return hb, listener
}

// pongResponder answers every probe with a pong carrying the probe's
// correlation id.
func pongResponder(t *testing.T, responseType string) func(c *fakeConn, data []byte) {
	t.Helper()
	ser := serializer.NewJSONSerializer()

	return func(c *fakeConn, data []byte) {
		var probe common.Frame
		require.NoError(t, ser.Deserialize(data, &probe))
		id, ok := probe.CorrelationID()
		require.True(t, ok)

		pong := common.NewFrame(responseType, nil)
		pong.SetCorrelationID(id)
		resp, err := ser.Serialize(pong)
		require.NoError(t, err)
		c.recv(resp)
	}
}

func TestHeartbeatProbesPeriodically(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	dialer := newFakeDialer()
	dialer.setOnSend(pongResponder(t, "pong"))

	hb, listener := newTestHeartbeat(t, testHeartbeatConf(), dialer)
	hb.Start()
	require.True(t, hb.IsRunning())

	require.Eventually(t, func() bool {
		return listener.successes.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	assert.EqualValues(t, 0, listener.failures.Load())
	assert.Equal(t, 0, hb.ConsecutiveFailures())
}

func TestHeartbeatUnhealthyAfterThreeFailures(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	// No responder: every probe times out
	dialer := newFakeDialer()

	conf := testHeartbeatConf()
	conf.TimeoutMs = 30
	hb, listener := newTestHeartbeat(t, conf, dialer)

	// Ticks are driven by hand so the failure streak is exact
	hb.running.Store(true)

	hb.tick()
	hb.tick()
	assert.EqualValues(t, 2, listener.failures.Load())
	assert.EqualValues(t, 0, listener.unhealthy.Load())
	assert.Equal(t, 2, hb.ConsecutiveFailures())

	hb.tick()
	assert.EqualValues(t, 3, listener.failures.Load())
	assert.EqualValues(t, 1, listener.unhealthy.Load())

	// The streak reset with the transition, a new streak starts at zero
	assert.Equal(t, 0, hb.ConsecutiveFailures())
}

func TestHeartbeatSuccessResetsStreak(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	dialer := newFakeDialer()

	conf := testHeartbeatConf()
	conf.TimeoutMs = 30
	hb, listener := newTestHeartbeat(t, conf, dialer)

	hb.running.Store(true)

	hb.tick()
	hb.tick()
	require.Equal(t, 2, hb.ConsecutiveFailures())

	dialer.setOnSend(pongResponder(t, "pong"))
	hb.tick()

	assert.EqualValues(t, 1, listener.successes.Load())
	assert.Equal(t, 0, hb.ConsecutiveFailures())
	assert.EqualValues(t, 0, listener.unhealthy.Load())
}

func TestHeartbeatRejectsUnexpectedResponseType(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	dialer := newFakeDialer()
	dialer.setOnSend(pongResponder(t, "nack"))

	conf := testHeartbeatConf()
	hb, listener := newTestHeartbeat(t, conf, dialer)

	hb.running.Store(true)
	hb.tick()

	assert.EqualValues(t, 1, listener.failures.Load())
	assert.EqualValues(t, 0, listener.successes.Load())
}

func TestHeartbeatStartStopLifecycle(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	dialer := newFakeDialer()
	dialer.setOnSend(pongResponder(t, "pong"))

	conf := testHeartbeatConf()
	conf.Enabled = false
	hb, _ := newTestHeartbeat(t, conf, dialer)

	hb.Start()
	assert.False(t, hb.IsRunning())

	conf.Enabled = true
	hb2, _ := newTestHeartbeat(t, conf, dialer)
	hb2.Start()
	hb2.Start()
	require.True(t, hb2.IsRunning())

	hb2.Stop()
	hb2.Stop()
	assert.False(t, hb2.IsRunning())
}

func TestHeartbeatStartStopConcurrently(t *testing.T) {
	t.Cleanup(leaktest.Check(t))

	dialer := newFakeDialer()
	dialer.setOnSend(pongResponder(t, "pong"))

	hb, _ := newTestHeartbeat(t, testHeartbeatConf(), dialer)

	// A Stop overtaking a Start must not strand the probe ticker
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			hb.Start()
		}()
		go func() {
			defer wg.Done()
			hb.Stop()
		}()
	}
	wg.Wait()

	hb.Stop()
	assert.False(t, hb.IsRunning())
}
