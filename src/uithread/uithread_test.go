package uithread

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(4)

	var mu sync.Mutex
	var got []int
	for i := 0; i < 20; i++ {
		i := i
		require.NoError(t, l.Post(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	l.Close()

	require.Len(t, got, 20)
	for i, v := range got {
		assert.Equal(t, i, v)
	}
}

func TestPostAfterCloseFails(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(1)
	l.Close()
	assert.ErrorIs(t, l.Post(func() {}), ErrStopped)
	l.Close()
}

func TestTaskPanicDoesNotKillLoop(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(2)
	defer l.Close()

	require.NoError(t, l.Post(func() { panic("boom") }))
	ran := false
	require.NoError(t, Call(context.Background(), l, func() { ran = true }))
	assert.True(t, ran)
}

func TestCallHonoursContext(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(2)
	defer l.Close()

	release := make(chan struct{})
	require.NoError(t, l.Post(func() { <-release }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Call(ctx, l, func() {})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestAfterFuncRunsOnLoop(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(2)
	defer l.Close()

	fired := make(chan struct{})
	AfterFunc(l, 5*time.Millisecond, func() { close(fired) })
	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer callback never ran")
	}
}

func TestStoppedTimerNeverActs(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(2)
	defer l.Close()

	var calls atomic.Int32
	tm := AfterFunc(l, 10*time.Millisecond, func() { calls.Add(1) })
	tm.Stop()
	time.Sleep(40 * time.Millisecond)
	require.NoError(t, Call(context.Background(), l, func() {}))
	assert.Zero(t, calls.Load())

	var nilTimer *Timer
	assert.NotPanics(t, nilTimer.Stop)
}

func TestTimerStoppedWhileQueued(t *testing.T) {
	defer goleak.VerifyNone(t)
	l := New(4)
	defer l.Close()

	release := make(chan struct{})
	require.NoError(t, l.Post(func() { <-release }))

	var calls atomic.Int32
	tm := AfterFunc(l, time.Millisecond, func() { calls.Add(1) })
	// let the timer fire and queue its task behind the blocked one
	time.Sleep(20 * time.Millisecond)
	tm.Stop()
	close(release)

	require.NoError(t, Call(context.Background(), l, func() {}))
	assert.Zero(t, calls.Load())
}
