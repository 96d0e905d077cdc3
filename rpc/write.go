package rpc

import (
	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcpb"
	"github.com/estuary/connrpc/rpcstate"
	"github.com/estuary/connrpc/sink"
)

// WriteOp peeks the writer sink and, if non-empty, sends its head on
// the wire, popping it only once the send succeeds — a transactional
// peek-then-commit. This transport's one wire type already is an
// Envelope, so there is never anything to pack before sending.
type WriteOp struct {
	base
	sink *sink.Sink
	head *rpcpb.Envelope
}

// NewWriteOp constructs a WriteOp bound to the given WriterSink.
func NewWriteOp(h *Handle, queue *cqueue.Queue, s *sink.Sink, onFinish func()) *WriteOp {
	return &WriteOp{
		base: base{
			rpc:               h,
			queue:             queue,
			accountsAsRunning: true,
			onFinish:          onFinish,
		},
		sink: s,
	}
}

// Start peeks the sink; if it is empty, Start refuses to post at all —
// no goroutine is spawned, no operation is marked in flight, and the
// writer pump will simply try again on its next tick.
func (op *WriteOp) Start() bool {
	head, ok := op.sink.Get(0)
	if !ok {
		return false
	}
	op.head = head

	return op.run(
		func() bool {
			return op.rpc.Call.Send(op.head) == nil
		},
		func() {
			op.sink.Pop()
		},
		func() {
			op.rpc.State.SetState(rpcstate.Inactive)
		},
	)
}
