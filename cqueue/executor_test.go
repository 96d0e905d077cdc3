package cqueue

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecutorDispatchesEveryTag(t *testing.T) {
	var q = New(16)
	var e = NewExecutor(q)
	e.Start(4)

	var count int64
	const n = 100
	for i := 0; i < n; i++ {
		require.NoError(t, q.Push(func() { atomic.AddInt64(&count, 1) }))
	}

	require.Eventually(t, func() bool {
		return atomic.LoadInt64(&count) == n
	}, time.Second, time.Millisecond)

	e.Stop()
}

func TestPushAfterShutdownFails(t *testing.T) {
	var q = New(1)
	var e = NewExecutor(q)
	e.Start(1)
	e.Stop()

	require.ErrorIs(t, q.Push(func() {}), ErrShutdown)
}

func TestShutdownDrainsBufferedTags(t *testing.T) {
	var q = New(8)
	var e = NewExecutor(q)
	// No workers started yet: buffer tags, then shut down, then start.
	var count int64
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Push(func() { atomic.AddInt64(&count, 1) }))
	}
	q.Shutdown()
	e.Start(2)
	e.Stop()

	require.EqualValues(t, 5, atomic.LoadInt64(&count))
}

func TestShutdownIsIdempotent(t *testing.T) {
	var q = New(0)
	q.Shutdown()
	q.Shutdown()
}
