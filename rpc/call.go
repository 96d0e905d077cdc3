// Package rpc is the core of the connection runtime: the RPC handle, its
// state machine wiring, the seven one-shot operations, and the
// reader/writer pumps that keep exactly one Read (resp. Write) in
// flight for the lifetime of a call.
package rpc

import (
	"context"

	"github.com/estuary/connrpc/rpcpb"
)

// Call is the minimal surface an RPC handle needs from the underlying
// transport stream. Both rpcpb.ConnRPC_ExchangeClient (outgoing) and
// rpcpb.ConnRPC_ExchangeServer (incoming) satisfy it.
type Call interface {
	Send(*rpcpb.Envelope) error
	Recv() (*rpcpb.Envelope, error)
	Context() context.Context
}
