package connrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/connectivity"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/estuary/connrpc/rpcpb"
)

// dial opens a client connection and blocks until it is Ready (a peer
// is actually reachable) or cfg's dial timeout elapses. This is what
// lets a Subscriber created before its Publisher observe failure at
// start() rather than silently queuing against a connection that will
// never come up in time.
func dial(ctx context.Context, cfg NetworkConfig) (*grpc.ClientConn, rpcpb.ConnRPCClient, error) {
	target := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	cc, err := grpc.NewClient(target, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, nil, fmt.Errorf("connrpc: dial %s: %w", target, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, cfg.dialTimeout())
	defer cancel()

	cc.Connect()
	for {
		state := cc.GetState()
		if state == connectivity.Ready {
			break
		}
		if !cc.WaitForStateChange(waitCtx, state) {
			_ = cc.Close()
			return nil, nil, fmt.Errorf("connrpc: %s did not become ready within %s", target, cfg.dialTimeout())
		}
	}

	return cc, rpcpb.NewConnRPCClient(cc), nil
}
