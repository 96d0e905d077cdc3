// Package server implements ServerCore: a listening endpoint that
// pre-posts a bounded number of accept placeholders and hands each
// accepted stream to a user-supplied ClientHandler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/grpc-ecosystem/go-grpc-prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/incoming"
	"github.com/estuary/connrpc/rpc"
	"github.com/estuary/connrpc/rpcpb"
)

// gracefulStopDeadline bounds how long Stop waits for grpc.GracefulStop
// before the process moves on and drops the listener anyway.
const gracefulStopDeadline = 100 * time.Millisecond

// ClientHandler is the user-supplied callback pair invoked per accepted
// call: ConfigureClient runs before any pump starts, Handle runs once
// the call is Executing and decides, via the keepAlive out-param,
// whether the server should retain the call beyond this invocation.
type ClientHandler interface {
	ConfigureClient(c *incoming.IncomingCall)
	Handle(c *incoming.IncomingCall, keepAlive *bool) bool
}

// ServerCore binds a listener, runs a shared completion queue sized to
// WorkerThreads, and keeps exactly WorkerThreads accept placeholders
// outstanding at all times while running.
type ServerCore struct {
	addr          string
	workerThreads int
	handler       ClientHandler

	listener  net.Listener
	grpcSrv   *grpc.Server
	queue     *cqueue.Queue
	executor  *cqueue.Executor
	manager   *incoming.ClientManager
	accept    *rendezvous
	grp       *errgroup.Group

	running atomic.Bool
	mu      sync.Mutex

	log *logrus.Entry
}

// New constructs a ServerCore. Call Start to bind and begin accepting.
func New(addr string, workerThreads int, handler ClientHandler, log *logrus.Entry) *ServerCore {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &ServerCore{
		addr:          addr,
		workerThreads: workerThreads,
		handler:       handler,
		log:           log.WithField("component", "server"),
	}
}

// Start binds the listener, registers the service, and pre-posts
// WorkerThreads accept placeholders. It returns false (with everything
// torn back down) if binding or registration failed.
func (s *ServerCore) Start() bool {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.log.WithError(err).Warn("listen failed")
		return false
	}
	s.listener = lis

	s.grpcSrv = grpc.NewServer(
		grpc.StreamInterceptor(grpc_prometheus.StreamServerInterceptor),
	)
	s.accept = newRendezvous()
	rpcpb.RegisterConnRPCServer(s.grpcSrv, s)

	s.queue = cqueue.New(s.workerThreads * 4)
	s.executor = cqueue.NewExecutor(s.queue)
	s.manager = incoming.NewClientManager(s.log)

	s.executor.Start(s.workerThreads)
	s.manager.Start()
	s.running.Store(true)

	for i := 0; i < s.workerThreads; i++ {
		s.postPlaceholder()
	}

	s.grp = &errgroup.Group{}
	s.grp.Go(func() error {
		return s.grpcSrv.Serve(lis)
	})
	return true
}

// postPlaceholder creates and starts a fresh IncomingCall, registering
// it with the ClientManager.
func (s *ServerCore) postPlaceholder() {
	call := incoming.New(context.Background(), s.queue, s.accept, s.onClientConnected)
	s.manager.Register(call)
	call.Start()
}

// onClientConnected is the RequestOp success callback for every
// placeholder: it pre-posts a replacement before handing the connected
// call to the user handler, so the accept slot is never vacant.
func (s *ServerCore) onClientConnected(call *incoming.IncomingCall) {
	if s.running.Load() {
		s.postPlaceholder()
	}

	if s.handler == nil {
		return
	}
	s.handler.ConfigureClient(call)

	keepAlive := false
	ok := s.handler.Handle(call, &keepAlive)
	call.KeepAlive = keepAlive
	if !keepAlive {
		call.Release()
	}
	if !ok {
		go s.Stop()
	}
}

// Exchange is the grpc handler for the single bidi-streaming method. It
// bridges grpc-go's push-style dispatch to the pull-style RequestOp
// accept slots via the rendezvous.
func (s *ServerCore) Exchange(stream rpcpb.ConnRPC_ExchangeServer) error {
	doneCh := make(chan error, 1)
	accepted := &acceptedCall{Call: stream, doneCh: doneCh}

	select {
	case s.accept.ch <- accepted:
	case <-stream.Context().Done():
		return stream.Context().Err()
	}

	return <-doneCh
}

// IsRunning reports whether the server is still accepting.
func (s *ServerCore) IsRunning() bool {
	return s.running.Load()
}

// Addr returns the listener's actual bound address, useful when the
// configured port was 0.
func (s *ServerCore) Addr() string {
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Stop marks the server not-running, drains every live call, gracefully
// shuts the transport down within a short deadline, and stops the
// executor and client manager.
func (s *ServerCore) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running.CompareAndSwap(true, false) {
		return true
	}

	s.manager.StopAll(errors.New("server stopping"))

	stopped := make(chan struct{})
	go func() {
		s.grpcSrv.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(gracefulStopDeadline):
		s.grpcSrv.Stop()
	}

	if err := s.grp.Wait(); err != nil {
		s.log.WithError(err).Debug("grpc serve returned")
	}

	s.executor.Stop()
	s.manager.Stop()
	return true
}

// acceptedCall bridges a grpc stream to rpc.Call and carries the
// channel its Exchange goroutine blocks on for the final status.
type acceptedCall struct {
	rpcpb.ConnRPC_ExchangeServer
	doneCh chan error
}

func (a *acceptedCall) DoneCh() chan error { return a.doneCh }

var _ rpc.Call = (*acceptedCall)(nil)

// rendezvous is the AcceptSource every pre-posted RequestOp pulls from.
type rendezvous struct {
	ch chan *acceptedCall
}

func newRendezvous() *rendezvous {
	return &rendezvous{ch: make(chan *acceptedCall)}
}

func (r *rendezvous) Accept(ctx context.Context) (rpc.Call, error) {
	select {
	case c := <-r.ch:
		return c, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("accept: %w", ctx.Err())
	}
}
