package rpc

import (
	"sync"
	"time"

	"github.com/estuary/connrpc/cqueue"
	"github.com/estuary/connrpc/sink"
)

// writerTickInterval is how often the writer pump checks whether the
// writer sink has anything to send. A Write op refuses to post at all
// when the sink is empty, so the tick is just a cheap poll rather than a
// busy loop doing transport work.
const writerTickInterval = 10 * time.Millisecond

// WriterPump drains the writer sink onto the wire, one envelope at a
// time, on a fixed tick. Unlike the reader pump it cannot simply chain
// the next Write from the previous one's completion, because there may
// be nothing queued yet — a ticker gives it somewhere to retry from.
type WriterPump struct {
	rpc   *Handle
	queue *cqueue.Queue
	sink  *sink.Sink

	mu        sync.Mutex
	active    *WriteOp
	completed *WriteOp

	ticker   *time.Ticker
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewWriterPump constructs a WriterPump.
func NewWriterPump(h *Handle, queue *cqueue.Queue, s *sink.Sink) *WriterPump {
	return &WriterPump{rpc: h, queue: queue, sink: s}
}

// Start begins ticking.
func (p *WriterPump) Start() {
	p.ticker = time.NewTicker(writerTickInterval)
	p.stopCh = make(chan struct{})

	p.wg.Add(1)
	go p.loop()
}

func (p *WriterPump) loop() {
	defer p.wg.Done()
	for {
		select {
		case <-p.ticker.C:
			p.tick()
		case <-p.stopCh:
			return
		}
	}
}

func (p *WriterPump) tick() {
	if p.rpc.IsTerminal() {
		return
	}

	p.mu.Lock()
	if p.active != nil {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	op := NewWriteOp(p.rpc, p.queue, p.sink, p.restart)

	p.mu.Lock()
	p.active = op
	p.mu.Unlock()

	if !op.Start() {
		// Sink was empty; nothing posted, try again next tick.
		p.mu.Lock()
		p.active = nil
		p.mu.Unlock()
	}
}

// restart is each WriteOp's onFinish callback: it displaces the
// just-completed op into `completed` and clears `active`, letting the
// next tick post a new one.
func (p *WriterPump) restart() {
	p.mu.Lock()
	p.completed = p.active
	p.active = nil
	p.mu.Unlock()
}

// Stop halts the tick loop and waits for it to exit. It does not wait
// for any in-flight WriteOp to complete. Safe to call more than once —
// a call can be stopped by its owning handler and independently reaped
// by the ClientManager, and only the first Stop should act.
func (p *WriterPump) Stop() {
	if p.ticker == nil {
		return
	}
	p.stopOnce.Do(func() {
		p.ticker.Stop()
		close(p.stopCh)
		p.wg.Wait()
	})
}

// Active returns the currently in-flight Write op, or nil.
func (p *WriterPump) Active() *WriteOp {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}
