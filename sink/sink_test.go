package sink

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estuary/connrpc/rpcpb"
)

func TestPutGetPopFIFO(t *testing.T) {
	var s = New(0)
	var a = &rpcpb.Envelope{TypeUrl: "a"}
	var b = &rpcpb.Envelope{TypeUrl: "b"}

	require.NoError(t, s.Put(a))
	require.NoError(t, s.Put(b))

	head, ok := s.Get(time.Second)
	require.True(t, ok)
	require.Same(t, a, head)

	s.Pop()

	head, ok = s.Get(time.Second)
	require.True(t, ok)
	require.Same(t, b, head)
}

func TestGetTimesOutOnEmpty(t *testing.T) {
	var s = New(0)
	var start = time.Now()
	_, ok := s.Get(20 * time.Millisecond)
	require.False(t, ok)
	require.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestGetWakesOnPut(t *testing.T) {
	var s = New(0)
	var resultCh = make(chan bool, 1)

	go func() {
		_, ok := s.Get(time.Second)
		resultCh <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.Put(&rpcpb.Envelope{TypeUrl: "a"}))

	select {
	case ok := <-resultCh:
		require.True(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get never woke up")
	}
}

func TestDrainWakesWaitersAndFailsSubsequentOps(t *testing.T) {
	var s = New(0)
	var resultCh = make(chan bool, 1)

	go func() {
		_, ok := s.Get(time.Second)
		resultCh <- ok
	}()

	time.Sleep(10 * time.Millisecond)
	s.Drain()

	select {
	case ok := <-resultCh:
		require.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Get never woke up on drain")
	}

	require.ErrorIs(t, s.Put(&rpcpb.Envelope{}), ErrDrained)
	_, ok := s.Get(time.Millisecond)
	require.False(t, ok)
}

func TestDrainIsIdempotent(t *testing.T) {
	var s = New(0)
	s.Drain()
	s.Drain() // must not panic (double close)
	require.True(t, s.Drained())
}

func TestCapacity(t *testing.T) {
	var s = New(1)
	require.NoError(t, s.Put(&rpcpb.Envelope{TypeUrl: "a"}))
	require.Error(t, s.Put(&rpcpb.Envelope{TypeUrl: "b"}))
}
