package rpc

import (
	"sync"

	"github.com/estuary/connrpc/cqueue"
)

// base is the shared shape of every operation: at most one start() may be
// in flight at a time, accounting against the in-flight count is optional
// per operation kind, and completion always runs through the completion
// queue rather than inline on the goroutine that performed the transport
// call — this is what makes cqueue.Executor a real dispatch point rather
// than decoration.
type base struct {
	mu                sync.Mutex
	inProgress        bool
	rpc               *Handle
	queue             *cqueue.Queue
	accountsAsRunning bool
	drivesToFinished  bool
	onFinish          func()
}

// run attempts to start the operation: it rejects if the RPC is terminal
// or an instance of this operation is already in flight. On acceptance
// it spawns a goroutine to perform initiate(), then posts the
// completion as a tag on the completion queue; the tag — invoked by an
// Executor worker — flips progress back to idle, adjusts ops_in_flight,
// runs onSucceeded or onFailed, and finally onFinish (which may replace
// or discard this operation, so it runs last).
//
// The terminal check is skipped for ops marked drivesToFinished: Finish
// and ServerFinish are always posted right after Dispose has already
// moved the handle to Disposing (itself a terminal state), and are the
// only thing that can carry it the rest of the way to Finished.
func (b *base) run(initiate func() bool, onSucceeded, onFailed func()) bool {
	if !b.drivesToFinished && b.rpc.IsTerminal() {
		return false
	}

	b.mu.Lock()
	if b.inProgress {
		b.mu.Unlock()
		return false
	}
	b.inProgress = true
	b.mu.Unlock()

	if b.accountsAsRunning {
		b.rpc.StartOperation()
	}

	go func() {
		ok := initiate()

		tag := func() {
			b.mu.Lock()
			b.inProgress = false
			b.mu.Unlock()

			if b.accountsAsRunning {
				b.rpc.FinishOperation()
			}
			if ok {
				onSucceeded()
			} else {
				onFailed()
			}
			if b.onFinish != nil {
				b.onFinish()
			}
		}

		if err := b.queue.Push(tag); err != nil {
			// The completion queue is already shut down. Run the tag
			// inline rather than dropping it silently: a lost
			// completion would leave ops_in_flight permanently
			// elevated and wedge AwaitFinished.
			tag()
		}
	}()
	return true
}

// InProgress reports whether this operation instance currently has a
// start() outstanding.
func (b *base) InProgress() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inProgress
}
