package rpc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/estuary/connrpc/rpcstate"
)

func TestHandleLifecycle(t *testing.T) {
	h := NewHandle(context.Background())
	require.Equal(t, rpcstate.Created, h.State.GetState(true))

	require.True(t, h.Initialize())
	require.Equal(t, rpcstate.Initializing, h.State.GetState(true))

	require.True(t, h.State.SetState(rpcstate.Executing))
	require.False(t, h.IsFinished())

	require.True(t, h.Dispose())
	require.Equal(t, rpcstate.Disposing, h.State.GetState(true))

	require.True(t, h.State.SetState(rpcstate.Finished))
	require.True(t, h.IsFinished())
}

func TestHandleOpsInFlightBlocksFinished(t *testing.T) {
	h := NewHandle(context.Background())
	require.True(t, h.Initialize())
	require.True(t, h.State.SetState(rpcstate.Executing))

	h.StartOperation()
	require.True(t, h.Dispose())
	require.True(t, h.State.SetState(rpcstate.Finished))

	require.False(t, h.IsFinished(), "ops still in flight")
	h.FinishOperation()
	require.True(t, h.IsFinished())
}

func TestAwaitFinishedOnNeverInitializedHandle(t *testing.T) {
	h := NewHandle(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.AwaitFinished(ctx))
}

func TestAwaitFinishedRespectsContext(t *testing.T) {
	h := NewHandle(context.Background())
	require.True(t, h.Initialize())
	require.True(t, h.State.SetState(rpcstate.Executing))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, h.AwaitFinished(ctx), context.DeadlineExceeded)
}

func TestAwaitFinishedUnblocksOnFinish(t *testing.T) {
	h := NewHandle(context.Background())
	require.True(t, h.Initialize())
	require.True(t, h.State.SetState(rpcstate.Executing))

	go func() {
		time.Sleep(5 * time.Millisecond)
		h.State.SetState(rpcstate.Finished)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, h.AwaitFinished(ctx))
}

func TestIsTerminal(t *testing.T) {
	h := NewHandle(context.Background())
	require.False(t, h.IsTerminal())
	require.True(t, h.Initialize())
	require.True(t, h.State.SetState(rpcstate.Executing))
	require.False(t, h.IsTerminal())
	require.True(t, h.Dispose())
	require.True(t, h.IsTerminal())
}
