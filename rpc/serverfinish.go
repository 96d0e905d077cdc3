package rpc

import (
	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcstate"
)

// ServerFinishOp is the server-side Finish operation. The transport's
// Exchange handler goroutine blocks receiving from doneCh; posting the
// status on that channel is what lets the handler return it as the
// RPC's final status.
type ServerFinishOp struct {
	base
	status error
	doneCh chan<- error
}

// NewServerFinishOp constructs a ServerFinishOp that will deliver status
// to doneCh.
func NewServerFinishOp(h *Handle, queue *cqueue.Queue, doneCh chan<- error, status error, onFinish func()) *ServerFinishOp {
	return &ServerFinishOp{
		base: base{
			rpc:               h,
			queue:             queue,
			accountsAsRunning: true,
			drivesToFinished:  true,
			onFinish:          onFinish,
		},
		status: status,
		doneCh: doneCh,
	}
}

// Start posts the status to the handler goroutine. It always succeeds
// from the completion queue's point of view: delivering the status is a
// local channel send, not a transport call that can fail.
func (op *ServerFinishOp) Start() bool {
	return op.run(
		func() bool {
			select {
			case op.doneCh <- op.status:
			default:
				// Handler already observed EOF/cancellation and
				// stopped reading from doneCh; nothing left to do.
			}
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
