package client

import (
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPoolConf(maxConns int) common.PoolConf {
	return common.PoolConf{
		MaxConnections:   maxConns,
		MinIdle:          0,
		MaxIdleTimeMs:    60_000,
		AcquireTimeoutMs: 50,
		ConnectTimeoutMs: 1_000,
	}
}

func noopRecv([]byte) {}

func TestPoolAcquireReusesIdleConnection(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(2), dialer, noopRecv, sched)
	defer pool.Close()

	conn1, err := pool.Acquire()
	require.NoError(t, err)
	require.Equal(t, 1, pool.TotalConnections())

	pool.Release(conn1)
	require.Equal(t, 1, pool.IdleConnections())

	conn2, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, conn1.ID(), conn2.ID())
	assert.Equal(t, 1, dialer.dials())

	pool.Release(conn2)
}

func TestPoolExhaustedAtCapacity(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(1), dialer, noopRecv, sched)
	defer pool.Close()

	conn, err := pool.Acquire()
	require.NoError(t, err)
	defer pool.Release(conn)

	start := time.Now()
	_, err = pool.Acquire()
	elapsed := time.Since(start)

	require.ErrorIs(t, err, common.ErrPoolExhausted)
	assert.GreaterOrEqual(t, elapsed, 40*time.Millisecond)
	assert.Equal(t, 1, pool.TotalConnections())
}

func TestPoolAcquireWaitsForRelease(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	conf := testPoolConf(1)
	conf.AcquireTimeoutMs = 500
	pool := NewConnectionPool(conf, dialer, noopRecv, sched)
	defer pool.Close()

	conn, err := pool.Acquire()
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		pool.Release(conn)
	}()

	waited, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, conn.ID(), waited.ID())
	pool.Release(waited)
}

func TestPoolDiscardsDeadIdleConnection(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(2), dialer, noopRecv, sched)
	defer pool.Close()

	conn, err := pool.Acquire()
	require.NoError(t, err)
	pool.Release(conn)

	conn.(*fakeConn).kill()

	fresh, err := pool.Acquire()
	require.NoError(t, err)
	assert.NotEqual(t, conn.ID(), fresh.ID())
	assert.Equal(t, 1, pool.TotalConnections())
	pool.Release(fresh)
}

func TestPoolReleaseUnhealthySchedulesReconnect(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(2), dialer, noopRecv, sched)
	defer pool.Close()

	rec := &fakeReconnector{}
	pool.SetReconnector(rec)

	conn, err := pool.Acquire()
	require.NoError(t, err)
	require.Equal(t, 1, pool.TotalConnections())

	conn.(*fakeConn).kill()
	pool.Release(conn)

	assert.True(t, conn.(*fakeConn).closed.Load())
	assert.Equal(t, 0, pool.TotalConnections())
	assert.EqualValues(t, 1, rec.calls.Load())
}

func TestPoolExternalConnectionIsNotCounted(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(1), dialer, noopRecv, sched)
	defer pool.Close()

	// A reconnect replacement enters through Release without a prior Acquire
	ext := dialer.newExternalConn(noopRecv)
	pool.Release(ext)

	require.Equal(t, 1, pool.IdleConnections())
	assert.Equal(t, 0, pool.TotalConnections())

	conn, err := pool.Acquire()
	require.NoError(t, err)
	assert.Equal(t, ext.ID(), conn.ID())

	// Closing the uncounted connection must not underflow the counter
	ext.kill()
	pool.Release(conn)
	assert.Equal(t, 0, pool.TotalConnections())
}

func TestPoolCloseIsIdempotent(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(2), dialer, noopRecv, sched)

	conn, err := pool.Acquire()
	require.NoError(t, err)
	idle, err := pool.Acquire()
	require.NoError(t, err)
	pool.Release(idle)

	pool.Close()
	pool.Close()

	// Borrowed and idle connections are both closed
	assert.True(t, conn.(*fakeConn).closed.Load())
	assert.True(t, idle.(*fakeConn).closed.Load())

	_, err = pool.Acquire()
	assert.ErrorIs(t, err, common.ErrPoolClosed)

	// Releasing after close closes the connection instead of pooling it
	pool.Release(conn)
	assert.Equal(t, 0, pool.IdleConnections())
}

func TestPoolReleaseAfterCloseClosesExternalConnection(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	pool := NewConnectionPool(testPoolConf(2), dialer, noopRecv, sched)
	pool.Close()

	// A reconnect dial finishing after Close hands its connection in here;
	// it was never borrowed, but it must not be left open
	ext := dialer.newExternalConn(noopRecv)
	pool.Release(ext)

	assert.True(t, ext.closed.Load())
	assert.Equal(t, 0, pool.IdleConnections())
}

func TestPoolCloseWakesBlockedAcquire(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	conf := testPoolConf(1)
	conf.AcquireTimeoutMs = 5_000
	pool := NewConnectionPool(conf, dialer, noopRecv, sched)

	conn, err := pool.Acquire()
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		_, err := pool.Acquire()
		errCh <- err
	}()

	// Let the second acquire block on the release wait, then close
	time.Sleep(20 * time.Millisecond)
	start := time.Now()
	pool.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, common.ErrPoolClosed)
		assert.Less(t, time.Since(start), time.Second)
	case <-time.After(2 * time.Second):
		t.Fatal("blocked acquire was not woken by close")
	}

	pool.Release(conn)
	assert.True(t, conn.(*fakeConn).closed.Load())
}

func TestPoolMaintainTopsUpMinIdle(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	conf := testPoolConf(4)
	conf.MinIdle = 2
	conf.MaxIdleTimeMs = 20
	pool := NewConnectionPool(conf, dialer, noopRecv, sched)
	defer pool.Close()

	require.Eventually(t, func() bool {
		return pool.IdleConnections() >= 2
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 2, pool.TotalConnections())
}

func TestPoolMaintainEvictsDeadIdle(t *testing.T) {
	defer leaktest.Check(t)()

	dialer := newFakeDialer()
	sched := NewScheduler()
	defer sched.Stop()

	conf := testPoolConf(4)
	conf.MaxIdleTimeMs = 20
	pool := NewConnectionPool(conf, dialer, noopRecv, sched)
	defer pool.Close()

	conn, err := pool.Acquire()
	require.NoError(t, err)
	pool.Release(conn)
	conn.(*fakeConn).kill()

	require.Eventually(t, func() bool {
		return pool.TotalConnections() == 0
	}, time.Second, 5*time.Millisecond)
}
