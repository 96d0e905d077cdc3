package rpc

import (
	"context"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcstate"
)

// AcceptSource hands an accepted transport Call to a blocked RequestOp.
// grpc-go invokes its service handler per incoming stream on its own
// goroutine, with no primitive for pre-posting N accept slots the way a
// completion-queue transport would, so ServerCore bridges the two models
// with a rendezvous channel (see server.rendezvous) that this interface
// wraps.
type AcceptSource interface {
	Accept(ctx context.Context) (Call, error)
}

// RequestOp is the server-side placeholder for an accepted call. The
// number of RequestOps outstanding at any time bounds the number of
// concurrent accepts the server will admit.
type RequestOp struct {
	base
	source      AcceptSource
	onConnected func(Call)
	result      Call
}

// NewRequestOp constructs a RequestOp. onConnected fires once, after a
// successful accept and after the RPC has transitioned to Executing.
func NewRequestOp(h *Handle, queue *cqueue.Queue, source AcceptSource, onConnected func(Call), onFinish func()) *RequestOp {
	return &RequestOp{
		base: base{
			rpc:               h,
			queue:             queue,
			accountsAsRunning: true,
			onFinish:          onFinish,
		},
		source:      source,
		onConnected: onConnected,
	}
}

// Start posts the accept.
func (op *RequestOp) Start() bool {
	return op.run(
		func() bool {
			call, err := op.source.Accept(op.rpc.Ctx)
			if err != nil {
				return false
			}
			op.result = call
			return true
		},
		func() {
			op.rpc.Call = op.result
			op.rpc.State.SetState(rpcstate.Executing)
			if op.onConnected != nil {
				op.onConnected(op.result)
			}
		},
		func() {
			op.rpc.State.SetState(rpcstate.Finished)
		},
	)
}
