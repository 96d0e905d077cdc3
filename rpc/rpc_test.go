package rpc

import (
	"context"
	"errors"
	"sync"

	"github.com/estuary/connrpc/rpcpb"
)

// fakeCall is a minimal, test-controllable implementation of Call.
type fakeCall struct {
	ctx context.Context

	mu      sync.Mutex
	sendFn  func(*rpcpb.Envelope) error
	recvFn  func() (*rpcpb.Envelope, error)
	sent    []*rpcpb.Envelope
	closed  bool
}

func newFakeCall(ctx context.Context) *fakeCall {
	return &fakeCall{ctx: ctx}
}

func (f *fakeCall) Send(e *rpcpb.Envelope) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(e)
	}
	f.sent = append(f.sent, e)
	return nil
}

func (f *fakeCall) Recv() (*rpcpb.Envelope, error) {
	if f.recvFn != nil {
		return f.recvFn()
	}
	return nil, errors.New("fakeCall: no recvFn configured")
}

func (f *fakeCall) Context() context.Context { return f.ctx }

func (f *fakeCall) CloseSend() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// blockingAcceptSource hands out a single call the first time Accept is
// called, then blocks until canceled.
type blockingAcceptSource struct {
	call Call
	err  error
}

func (s *blockingAcceptSource) Accept(ctx context.Context) (Call, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.call != nil {
		return s.call, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}
