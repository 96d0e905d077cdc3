package rpc

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/estuary/connrpc/rpcstate"
)

// awaitPollInterval is the spin-yield granularity for AwaitFinished
// (OutgoingCall's post-Connect wait uses its own interval). It bounds wakeup latency, not
// correctness — a single condition variable cannot express "state is
// terminal AND ops-in-flight is zero" as one wakeable event without also
// duplicating the state machine's own locking, so a short ticker is used
// instead of invented signaling machinery.
const awaitPollInterval = time.Millisecond

// Handle is the per-call state: a state machine, the transport Call, the
// call's context, and a count of in-flight operations. It is shared by
// exactly one OutgoingCall or IncomingCall and referenced by that call's
// operations.
type Handle struct {
	ID    uuid.UUID
	State *rpcstate.Machine

	Call   Call
	Ctx    context.Context
	Cancel context.CancelFunc

	opsInFlight atomic.Int32
}

// NewHandle constructs a Handle in the Created state, wrapping parent
// with a cancelable context later bound to a transport Call.
func NewHandle(parent context.Context) *Handle {
	ctx, cancel := context.WithCancel(parent)
	return &Handle{
		ID:     uuid.New(),
		State:  rpcstate.NewMachine(),
		Ctx:    ctx,
		Cancel: cancel,
	}
}

// Initialize transitions Created -> Initializing. It returns false, with
// no effect, if the handle was not in Created.
func (h *Handle) Initialize() bool {
	return h.State.SetState(rpcstate.Initializing)
}

// Dispose transitions Executing|Inactive -> Disposing. It returns false,
// with no effect, otherwise.
func (h *Handle) Dispose() bool {
	return h.State.SetState(rpcstate.Disposing)
}

// StartOperation increments the in-flight operation count. Called by any
// operation whose AccountsAsRunning is true, on a successful start.
func (h *Handle) StartOperation() {
	h.opsInFlight.Add(1)
}

// FinishOperation decrements the in-flight operation count.
func (h *Handle) FinishOperation() {
	h.opsInFlight.Add(-1)
}

// OpsInFlight reports the current in-flight operation count.
func (h *Handle) OpsInFlight() int32 {
	return h.opsInFlight.Load()
}

// IsFinished reports whether the handle has reached Finished with no
// operations still in flight — the only point at which it may be
// reclaimed.
func (h *Handle) IsFinished() bool {
	return h.State.GetState(true) == rpcstate.Finished && h.opsInFlight.Load() == 0
}

// AwaitFinished blocks, polling at awaitPollInterval, until the handle is
// terminal: either Finished with no ops in flight, or still Created (a
// handle that was never initialized) — the latter lets callers tear down
// a handle that was allocated but never started.
func (h *Handle) AwaitFinished(ctx context.Context) error {
	if h.terminal() {
		return nil
	}
	ticker := time.NewTicker(awaitPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if h.terminal() {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (h *Handle) terminal() bool {
	state := h.State.GetState(true)
	return (state == rpcstate.Finished || state == rpcstate.Created) && h.opsInFlight.Load() == 0
}

// IsTerminal reports whether the handle's state is one from which no
// further operation may start (Inactive, Disposing, or Finished). A
// failed call settles into Inactive and stays there until something
// disposes it; new Read/Write ops must not be started against it.
func (h *Handle) IsTerminal() bool {
	switch h.State.GetState(true) {
	case rpcstate.Inactive, rpcstate.Disposing, rpcstate.Finished:
		return true
	default:
		return false
	}
}
