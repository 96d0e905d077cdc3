// Package incoming implements the server side of one accepted call: a
// placeholder that posts a Request against the server's shared
// completion queue, then runs the reader/writer pumps once a stream is
// handed to it.
package incoming

import (
	"context"
	"sync/atomic"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpc"
	"github.com/estuary/connrpc/rpcstate"
	"github.com/estuary/connrpc/sink"
)

// doneChSource is satisfied by a Call that also carries the channel its
// owning handler goroutine is blocked receiving from. ServerCore's
// rendezvous bridge implements it; IncomingCall type-asserts for it
// rather than importing the server package, to avoid a cycle.
type doneChSource interface {
	DoneCh() chan error
}

// IncomingCall is the server-side placeholder for one accepted call. It
// doubles as the "Client wrapper" callers retain across a handler's
// lifetime: RefCount starts at one (held by the owning ClientManager)
// and is incremented by anything else that wants to outlive a single
// handler invocation (a publisher's subscriber list, for instance).
type IncomingCall struct {
	handle *rpc.Handle
	queue  *cqueue.Queue
	source rpc.AcceptSource

	ReaderSink *sink.Sink
	WriterSink *sink.Sink

	readerPump *rpc.ReaderPump
	writerPump *rpc.WriterPump

	doneOp *rpc.DoneOp
	doneCh chan error

	onConnected func(*IncomingCall)

	// KeepAlive records the value the user's ClientHandler set through
	// Handle's keepAlive out-param; when it is false, ServerCore releases
	// one reference. The ClientManager does not read it: reaping depends
	// only on the handle's state and RefCount, so callers that want to
	// retain the wrapper must call Retain.
	KeepAlive bool

	refCount atomic.Int32
}

// New constructs an IncomingCall bound to the server's shared completion
// queue and accept source. onConnected fires once the stream is
// accepted and the RPC has reached Executing.
func New(parent context.Context, queue *cqueue.Queue, source rpc.AcceptSource, onConnected func(*IncomingCall)) *IncomingCall {
	h := rpc.NewHandle(parent)
	c := &IncomingCall{
		handle:      h,
		queue:       queue,
		source:      source,
		ReaderSink:  sink.New(0),
		WriterSink:  sink.New(0),
		onConnected: onConnected,
	}
	c.refCount.Store(1)

	h.State.OnChange = func(from, to rpcstate.State) {
		if to == rpcstate.Inactive || to == rpcstate.Finished {
			c.ReaderSink.Drain()
			c.WriterSink.Drain()
		}
	}

	c.readerPump = rpc.NewReaderPump(h, queue, c.ReaderSink)
	c.writerPump = rpc.NewWriterPump(h, queue, c.WriterSink)
	return c
}

// Start registers the end-of-call notification and posts the accept
// placeholder. It returns false if the handle was not Created.
func (c *IncomingCall) Start() bool {
	if !c.handle.Initialize() {
		return false
	}
	c.doneOp = rpc.NewDoneOp(c.handle, c.queue, nil)
	c.doneOp.Start()

	req := rpc.NewRequestOp(c.handle, c.queue, c.source, c.onRequestConnected, nil)
	return req.Start()
}

func (c *IncomingCall) onRequestConnected(call rpc.Call) {
	if dc, ok := call.(doneChSource); ok {
		c.doneCh = dc.DoneCh()
	}
	c.readerPump.Start()
	c.writerPump.Start()
	if c.onConnected != nil {
		c.onConnected(c)
	}
}

// Stop disposes the call, delivering status to the blocked handler
// goroutine if the dispose transition actually happened. A call that
// could not be disposed (an accept placeholder still waiting for a
// stream) has its context canceled instead, so its pending Request fails
// and the handle reaches Finished.
func (c *IncomingCall) Stop(status error) bool {
	moved := c.handle.Dispose()
	if moved && c.doneCh != nil {
		op := rpc.NewServerFinishOp(c.handle, c.queue, c.doneCh, status, nil)
		op.Start()
	}
	if !moved {
		c.handle.Cancel()
	}
	c.writerPump.Stop()
	_ = c.handle.AwaitFinished(context.Background())
	return true
}

// IsRunning reports whether the underlying RPC is still live. Inactive
// means the peer is already gone, so it does not count as running even
// though nothing has disposed the call yet.
func (c *IncomingCall) IsRunning() bool {
	return c.handle.State.GetState(true) == rpcstate.Executing
}

// Retain increments the wrapper's reference count.
func (c *IncomingCall) Retain() { c.refCount.Add(1) }

// Release decrements the wrapper's reference count.
func (c *IncomingCall) Release() { c.refCount.Add(-1) }

// RefCount reports the current reference count.
func (c *IncomingCall) RefCount() int32 { return c.refCount.Load() }

// Handle exposes the underlying RPC handle.
func (c *IncomingCall) Handle() *rpc.Handle { return c.handle }
