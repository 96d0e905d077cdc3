package rpc

import (
	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/rpcpb"
	"github.com/estuary/connrpc/rpcstate"
)

// ConnectOp opens the bidirectional stream on the client side. On
// success the RPC transitions to Executing and the opened Call is
// installed on the handle; on failure it transitions to Inactive.
type ConnectOp struct {
	base
	client rpcpb.ConnRPCClient
	result Call
}

// NewConnectOp constructs a ConnectOp. onFinish, if non-nil, is invoked
// after the completion callback, outside any lock. OutgoingCall.Start
// passes nil and polls InProgress instead.
func NewConnectOp(h *Handle, queue *cqueue.Queue, client rpcpb.ConnRPCClient, onFinish func()) *ConnectOp {
	return &ConnectOp{
		base: base{
			rpc:               h,
			queue:             queue,
			accountsAsRunning: true,
			onFinish:          onFinish,
		},
		client: client,
	}
}

// Start posts the connect attempt. It returns false if the RPC is
// terminal or a connect is already in flight.
func (op *ConnectOp) Start() bool {
	return op.run(
		func() bool {
			stream, err := op.client.Exchange(op.rpc.Ctx)
			if err != nil {
				return false
			}
			op.result = stream
			return true
		},
		func() {
			op.rpc.Call = op.result
			op.rpc.State.SetState(rpcstate.Executing)
		},
		func() {
			op.rpc.State.SetState(rpcstate.Inactive)
		},
	)
}
