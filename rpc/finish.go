package rpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcstate"
)

// closeSender is implemented by client-side streams.
type closeSender interface {
	CloseSend() error
}

// FinishOp is the client-side Finish operation: it cancels the call's
// context and closes the send direction. It deliberately does not
// itself call Recv: the reader pump may still have a Read in flight
// concurrently, and grpc streams forbid concurrent Recv calls on one
// stream. The final status is instead approximated from the context we
// just canceled, which is always Canceled once cancellation has run.
// Both success and failure drive the RPC to Finished; a status of OK or
// Cancelled is treated as a successful stop by the owning OutgoingCall.
type FinishOp struct {
	base
	status error
}

// NewFinishOp constructs a FinishOp.
func NewFinishOp(h *Handle, queue *cqueue.Queue, onFinish func()) *FinishOp {
	return &FinishOp{
		base: base{
			rpc:               h,
			queue:             queue,
			accountsAsRunning: true,
			drivesToFinished:  true,
			onFinish:          onFinish,
		},
	}
}

// Start posts the finish.
func (op *FinishOp) Start() bool {
	return op.run(
		func() bool {
			op.rpc.Cancel()
			if cs, ok := op.rpc.Call.(closeSender); ok {
				_ = cs.CloseSend()
			}
			op.status = op.rpc.Ctx.Err()
			return true
		},
		func() {
			op.rpc.State.SetState(rpcstate.Finished)
		},
		func() {
			op.rpc.State.SetState(rpcstate.Finished)
		},
	)
}

// Status returns the final status observed when the stream closed. It
// is only meaningful after Start's completion callback has run — callers
// should retain the FinishOp until AwaitFinished returns before reading
// it.
func (op *FinishOp) Status() error {
	return op.status
}

// Ok reports whether Status should be treated as a successful stop: a
// clean close, or a Cancelled status from our own try_cancel.
func (op *FinishOp) Ok() bool {
	if op.status == nil || errors.Is(op.status, context.Canceled) {
		return true
	}
	if s, ok := status.FromError(op.status); ok && s.Code() == codes.Canceled {
		return true
	}
	return false
}
