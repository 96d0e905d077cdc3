package connrpc

import (
	"context"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"

	"github.com/estuary/connrpc/outgoing"
	"github.com/estuary/connrpc/sink"
)

// Client is the public wrapper around an outgoing connection.
type Client struct {
	cfg  NetworkConfig
	conn *grpc.ClientConn
	call *outgoing.OutgoingCall
}

// Start dials and opens the stream. It returns false on any setup or
// connect failure, leaving the Client in a safe stopped state.
func (c *Client) Start() bool {
	cc, stub, err := dial(context.Background(), c.cfg)
	if err != nil {
		logrus.WithError(err).Warn("connrpc: client start failed")
		return false
	}
	c.conn = cc
	c.call = outgoing.New(context.Background(), stub, c.cfg.workerThreads(), nil)

	if !c.call.Start() {
		_ = cc.Close()
		return false
	}
	return true
}

// Stop tears the connection down.
func (c *Client) Stop() bool {
	if c.call == nil {
		return true
	}
	ok := c.call.Stop()
	if c.conn != nil {
		_ = c.conn.Close()
	}
	return ok
}

// IsRunning reports whether the underlying call is still live.
func (c *Client) IsRunning() bool {
	return c.call != nil && c.call.IsRunning()
}

// WriterSink returns the sink backing this client's outgoing envelopes.
// Typed sugar built on top lives in typed.go.
func (c *Client) WriterSink() *sink.Sink { return c.call.WriterSink }

// ReaderSink returns the sink delivering this client's incoming
// envelopes.
func (c *Client) ReaderSink() *sink.Sink { return c.call.ReaderSink }
