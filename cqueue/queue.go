// Package cqueue implements a completion-queue executor: a bounded set
// of worker goroutines that pull posted tags and invoke them, in the
// order the underlying transport delivers completions. Where a
// poll-based completion queue would spin with a zero deadline and yield
// between rounds, cqueue instead uses a channel close as an explicit
// wake-up for shutdown — Go's channels make that substitution free.
package cqueue

import "errors"

// ErrShutdown is returned by Push once the queue has been shut down.
var ErrShutdown = errors.New("cqueue: shut down")

// Tag is a posted completion callback. Operations close over their `ok`
// result when constructing a Tag, so invoking it requires no arguments.
type Tag func()

// Queue is a completion queue: operations Push a Tag when their one
// async call completes; an Executor's workers pull and invoke them.
type Queue struct {
	ch       chan Tag
	shutdown chan struct{}
}

// New returns a Queue with the given tag backlog capacity.
func New(capacity int) *Queue {
	return &Queue{
		ch:       make(chan Tag, capacity),
		shutdown: make(chan struct{}),
	}
}

// Push posts tag for dispatch by an Executor worker. It fails with
// ErrShutdown if Shutdown has already been called.
func (q *Queue) Push(tag Tag) error {
	select {
	case <-q.shutdown:
		return ErrShutdown
	default:
	}
	select {
	case q.ch <- tag:
		return nil
	case <-q.shutdown:
		return ErrShutdown
	}
}

// Shutdown marks the queue as shut down. Workers drain any tags already
// queued, then observe shutdown and exit. Idempotent.
func (q *Queue) Shutdown() {
	select {
	case <-q.shutdown:
		return
	default:
		close(q.shutdown)
	}
}
