package rpc

import (
	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcstate"
)

// DoneOp blocks until the call's context is done (peer hangup,
// cancellation, or deadline), then fires. It never counts as a running
// operation, so a DoneOp alone never keeps a handle from being
// considered finished once its state reaches Finished.
type DoneOp struct {
	base
}

// NewDoneOp constructs a DoneOp. accountsAsRunning is left false.
func NewDoneOp(h *Handle, queue *cqueue.Queue, onFinish func()) *DoneOp {
	return &DoneOp{
		base: base{
			rpc:      h,
			queue:    queue,
			onFinish: onFinish,
		},
	}
}

// Start posts the wait.
func (op *DoneOp) Start() bool {
	return op.run(
		func() bool {
			<-op.rpc.Ctx.Done()
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
