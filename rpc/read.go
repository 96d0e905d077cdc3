package rpc

import (
	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcpb"
	"github.com/estuary/connrpc/rpcstate"
	"github.com/estuary/connrpc/sink"
)

// ReadOp performs exactly one call.Recv() and, on success, delivers the
// envelope into the reader sink. Because every connrpc stream's wire
// message already is an Envelope, there is no packing step for this
// transport; a future non-self-describing transport could hook a real
// pack call in here.
type ReadOp struct {
	base
	sink *sink.Sink
	env  *rpcpb.Envelope
}

// NewReadOp constructs a ReadOp bound to the given ReaderSink.
func NewReadOp(h *Handle, queue *cqueue.Queue, s *sink.Sink, onFinish func()) *ReadOp {
	return &ReadOp{
		base: base{
			rpc:               h,
			queue:             queue,
			accountsAsRunning: true,
			onFinish:          onFinish,
		},
		sink: s,
	}
}

// Start posts the read.
func (op *ReadOp) Start() bool {
	return op.run(
		func() bool {
			env, err := op.rpc.Call.Recv()
			if err != nil {
				return false
			}
			op.env = env
			return true
		},
		func() {
			if err := op.sink.Put(op.env); err != nil {
				// Sink already drained (e.g. a concurrent dispose):
				// drop the frame rather than block or panic.
				return
			}
		},
		func() {
			op.rpc.State.SetState(rpcstate.Inactive)
		},
	)
}
