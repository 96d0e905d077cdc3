// Package outgoing implements the client side of a connection: opening
// the bidirectional stream over an already-dialed client, and running the reader/writer pumps
// for the lifetime of the call.
package outgoing

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpc"
	"github.com/estuary/connrpc/rpcpb"
	"github.com/estuary/connrpc/rpcstate"
	"github.com/estuary/connrpc/sink"
)

// connectSpinInterval is how often Start polls the in-flight Connect op
// for completion.
const connectSpinInterval = time.Millisecond

// OutgoingCall is one client-initiated RPC: its own completion queue and
// executor, a handle, two sinks, and the reader/writer pumps.
type OutgoingCall struct {
	handle *rpc.Handle
	client rpcpb.ConnRPCClient

	queue    *cqueue.Queue
	executor *cqueue.Executor

	ReaderSink *sink.Sink
	WriterSink *sink.Sink

	readerPump *rpc.ReaderPump
	writerPump *rpc.WriterPump

	finish *rpc.FinishOp

	workerThreads int

	log *logrus.Entry
}

// New constructs an OutgoingCall against client, sizing its completion
// queue's executor with workerThreads workers.
func New(ctx context.Context, client rpcpb.ConnRPCClient, workerThreads int, log *logrus.Entry) *OutgoingCall {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	h := rpc.NewHandle(ctx)
	q := cqueue.New(workerThreads * 4)

	c := &OutgoingCall{
		handle:     h,
		client:     client,
		queue:      q,
		executor:   cqueue.NewExecutor(q),
		ReaderSink: sink.New(0),
		WriterSink: sink.New(0),
		log:        log.WithField("rpc_id", h.ID.String()),

		workerThreads: workerThreads,
	}

	h.State.OnChange = func(from, to rpcstate.State) {
		if to == rpcstate.Inactive || to == rpcstate.Finished {
			c.ReaderSink.Drain()
			c.WriterSink.Drain()
		}
	}

	c.readerPump = rpc.NewReaderPump(h, q, c.ReaderSink)
	c.writerPump = rpc.NewWriterPump(h, q, c.WriterSink)
	return c
}

// Start opens the stream over the already-dialed client. It returns
// false, leaving the call stopped, if the handle was not CREATED or the
// connect attempt failed.
func (c *OutgoingCall) Start() bool {
	if !c.handle.Initialize() {
		return false
	}
	c.executor.Start(c.workerThreads)

	op := rpc.NewConnectOp(c.handle, c.queue, c.client, nil)
	if !op.Start() {
		c.Stop()
		return false
	}
	for op.InProgress() {
		time.Sleep(connectSpinInterval)
	}

	if c.handle.State.GetState(true) != rpcstate.Executing {
		c.log.Warn("connect did not reach executing state")
		c.Stop()
		return false
	}

	c.readerPump.Start()
	c.writerPump.Start()
	return true
}

// Stop tears the call down, returning true if the finish completed with
// OK or Cancelled (the caller's own request to stop is not a failure).
func (c *OutgoingCall) Stop() bool {
	moved := c.handle.Dispose()
	if moved {
		c.finish = rpc.NewFinishOp(c.handle, c.queue, nil)
		c.finish.Start()
	}
	c.teardown()

	if c.finish == nil {
		return true
	}
	return c.finish.Ok()
}

// teardown stops the pumps, waits for the handle to quiesce, and stops
// the executor — in that order, so no operation can be posted against a
// queue that has already shut down.
func (c *OutgoingCall) teardown() {
	c.writerPump.Stop()
	_ = c.handle.AwaitFinished(context.Background())
	c.executor.Stop()
}

// IsRunning reports whether the call's state machine is still in a live
// state. Inactive means the peer is already gone (a Read or Write
// failed), so it does not count as running even though nothing has
// disposed the call yet.
func (c *OutgoingCall) IsRunning() bool {
	return c.handle.State.GetState(true) == rpcstate.Executing
}

// Handle exposes the underlying RPC handle, for callers that need to
// inspect state directly (e.g. tests).
func (c *OutgoingCall) Handle() *rpc.Handle {
	return c.handle
}
