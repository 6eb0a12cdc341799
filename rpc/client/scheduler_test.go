package client

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/kanal-io/kanal/rpc/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulerEveryTicksUntilCancelled(t *testing.T) {
	defer leaktest.Check(t)()

	sched := NewScheduler()
	defer sched.Stop()

	var ticks atomic.Int64
	cancel := sched.Every(10*time.Millisecond, func() { ticks.Add(1) })

	require.Eventually(t, func() bool {
		return ticks.Load() >= 3
	}, time.Second, time.Millisecond)

	cancel()
	cancel()

	settled := ticks.Load()
	time.Sleep(50 * time.Millisecond)
	assert.LessOrEqual(t, ticks.Load(), settled+1)
}

func TestSchedulerAfterCancel(t *testing.T) {
	defer leaktest.Check(t)()

	sched := NewScheduler()
	defer sched.Stop()

	var fired atomic.Bool
	cancel := sched.After(20*time.Millisecond, func() { fired.Store(true) })
	cancel()

	time.Sleep(60 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestSchedulerStoppedRefusesNewTasks(t *testing.T) {
	defer leaktest.Check(t)()

	sched := NewScheduler()
	sched.Stop()

	var fired atomic.Bool
	sched.After(time.Millisecond, func() { fired.Store(true) })
	sched.Every(time.Millisecond, func() { fired.Store(true) })

	time.Sleep(30 * time.Millisecond)
	assert.False(t, fired.Load())
}

func TestSchedulerSurvivesPanickingTask(t *testing.T) {
	defer leaktest.Check(t)()

	sched := NewScheduler()
	defer sched.Stop()

	var ticks atomic.Int64
	cancel := sched.Every(5*time.Millisecond, func() {
		ticks.Add(1)
		panic("boom")
	})
	defer cancel()

	require.Eventually(t, func() bool {
		return ticks.Load() >= 2
	}, time.Second, time.Millisecond)
}

func TestFutureResolvesExactlyOnce(t *testing.T) {
	f := newFuture()

	require.True(t, f.complete(common.NewFrame("result", nil), nil))
	assert.False(t, f.complete(nil, assert.AnError))

	frame, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "result", frame.Type())

	select {
	case <-f.Done():
	default:
		t.Fatal("done channel not closed")
	}
}

func TestFutureAwaitTimesOut(t *testing.T) {
	f := newFuture()

	_, err := f.Await(20 * time.Millisecond)
	require.ErrorIs(t, err, common.ErrRequestTimeout)

	// A late completion still resolves blocked Result callers
	require.True(t, f.complete(common.NewFrame("result", nil), nil))
	frame, err := f.Result()
	require.NoError(t, err)
	assert.Equal(t, "result", frame.Type())
}
