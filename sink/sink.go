// Package sink provides the bounded, drainable envelope queues that sit
// between the application and the reader/writer pumps.
package sink

import (
	"errors"
	"sync"
	"time"

	"github.com/estuary/connrpc/rpcpb"
)

// ErrDrained is returned by Put once a Sink has been drained. Get reports
// a drained sink by returning false; Pop on a drained sink is a no-op.
var ErrDrained = errors.New("sink: drained")

// Sink is a bounded FIFO of envelopes. Get is a non-consuming peek; Pop
// removes the element a prior Get observed. Only the owning pump may call
// Pop — concurrent popping is forbidden by design.
type Sink struct {
	mu       sync.Mutex
	cap      int
	queue    []*rpcpb.Envelope
	drained  bool
	notifyCh chan struct{} // closed and replaced whenever the queue or drained state changes
}

// New returns a Sink with the given capacity. A capacity of zero means
// unbounded.
func New(capacity int) *Sink {
	return &Sink{
		cap:      capacity,
		notifyCh: make(chan struct{}),
	}
}

// wake closes the current notify channel (waking every blocked Get) and
// installs a fresh one. Callers must hold mu.
func (s *Sink) wake() {
	close(s.notifyCh)
	s.notifyCh = make(chan struct{})
}

// Put appends e to the queue. It fails with ErrDrained if the sink has
// been drained, and with a separate "at capacity" error if the sink is
// full.
func (s *Sink) Put(e *rpcpb.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drained {
		return ErrDrained
	}
	if s.cap > 0 && len(s.queue) >= s.cap {
		return errors.New("sink: at capacity")
	}
	s.queue = append(s.queue, e)
	s.wake()
	return nil
}

// Get non-destructively reads the head of the queue, waiting up to
// timeout for an element to arrive if the queue is currently empty. It
// returns false on timeout or if the sink is drained without delivering
// anything.
func (s *Sink) Get(timeout time.Duration) (*rpcpb.Envelope, bool) {
	deadline := time.Now().Add(timeout)
	for {
		s.mu.Lock()
		if s.drained {
			s.mu.Unlock()
			return nil, false
		}
		if len(s.queue) != 0 {
			head := s.queue[0]
			s.mu.Unlock()
			return head, true
		}
		ch := s.notifyCh
		s.mu.Unlock()

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return nil, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-ch:
			timer.Stop()
		case <-timer.C:
			return nil, false
		}
	}
}

// Pop removes the head of the queue. Its precondition is that a prior Get
// returned true; calling it on an empty or drained sink is a no-op.
func (s *Sink) Pop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return
	}
	s.queue = s.queue[1:]
}

// Drain empties the queue and marks the sink drained, waking every Get
// currently blocked so it observes failure. Drain is idempotent.
func (s *Sink) Drain() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.drained {
		return
	}
	s.drained = true
	s.queue = nil
	s.wake()
}

// Reset clears the drained flag and empties the queue, allowing the sink
// to be reused. Convenient for tests that restart a pump against the
// same sink.
func (s *Sink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.drained = false
	s.queue = nil
}

// Len reports the current queue length, for tests and diagnostics.
func (s *Sink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Drained reports whether the sink has been drained.
func (s *Sink) Drained() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.drained
}
