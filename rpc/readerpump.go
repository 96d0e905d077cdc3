package rpc

import (
	"sync"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/sink"
)

// ReaderPump keeps exactly one Read operation in flight for the
// lifetime of an RPC. Each time a Read completes, the pump atomically
// swaps in a freshly created one; the displaced op is held in
// `completed` for one restart cycle so a callback still unwinding from
// the just-finished op never observes the pump having already moved on.
// Go's garbage collector makes a dangling pointer impossible, but
// retaining the reference for one cycle still documents, and lets tests
// assert, that a displaced op's callback is never re-entered once the
// pump has spawned its successor.
type ReaderPump struct {
	rpc   *Handle
	queue *cqueue.Queue
	sink  *sink.Sink

	mu        sync.Mutex
	active    *ReadOp
	completed *ReadOp
}

// NewReaderPump constructs a ReaderPump.
func NewReaderPump(h *Handle, queue *cqueue.Queue, s *sink.Sink) *ReaderPump {
	return &ReaderPump{rpc: h, queue: queue, sink: s}
}

// Start posts the first Read.
func (p *ReaderPump) Start() {
	p.spawn()
}

func (p *ReaderPump) spawn() {
	op := NewReadOp(p.rpc, p.queue, p.sink, p.restart)

	p.mu.Lock()
	p.active = op
	p.mu.Unlock()

	op.Start()
}

// restart is each ReadOp's onFinish callback: it displaces the just-
// completed op into `completed`, then, unless the RPC is now terminal,
// spawns its successor.
func (p *ReaderPump) restart() {
	p.mu.Lock()
	p.completed = p.active
	p.mu.Unlock()

	if p.rpc.IsTerminal() {
		return
	}
	p.spawn()
}

// Active returns the currently in-flight Read op, or nil.
func (p *ReaderPump) Active() *ReadOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
