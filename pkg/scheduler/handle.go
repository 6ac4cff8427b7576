package scheduler

import (
	"context"
	"sync"

	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

// job pairs a payload with its handle. A descriptor is created by
// Submit, sits in at most one queue at a time, and is consumed exactly
// once. Prerequisites are resolved at submission and not retained.
type job struct {
	fn     Work
	handle *Handle
}

// Handle tracks a single submitted job through its lifetime. It is the
// caller's view of the job: state, result, and a completion channel.
// Handles are safe for concurrent use and remain valid after the
// scheduler shuts down.
type Handle struct {
	id JobID
	s  *Scheduler

	mu     sync.Mutex
	state  State
	result any
	err    error

	// done is closed exactly once, when the handle reaches a terminal
	// state. The close publishes the result slot to all readers.
	done chan struct{}
}

func newHandle(s *Scheduler, id JobID) *Handle {
	return &Handle{
		id:    id,
		s:     s,
		state: StatePending,
		done:  make(chan struct{}),
	}
}

// ID reports the scheduler-unique job id.
func (h *Handle) ID() JobID { return h.id }

// State reports the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done returns a channel closed when the job reaches a terminal state.
func (h *Handle) Done() <-chan struct{} { return h.done }

// transition flips from -> to and reports whether it happened. A
// mismatch leaves the handle untouched.
func (h *Handle) transition(from, to State) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != from {
		return false
	}
	h.state = to
	return true
}

// complete writes the result slot and closes done. It reports false if
// the handle was already terminal, in which case nothing is written.
func (h *Handle) complete(result any, err error) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state.Terminal() {
		return false
	}
	if err != nil {
		h.state = StateFailed
		h.err = err
	} else {
		h.state = StateCompleted
		h.result = result
	}
	close(h.done)
	return true
}

// cancel moves a not-yet-running handle to Cancelled. Running and
// terminal handles are left alone; a running payload always finishes
// on its own terms.
func (h *Handle) cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state != StatePending && h.state != StateReady {
		return false
	}
	h.state = StateCancelled
	h.err = srvErrors.NewJobCancelledError(uint64(h.id))
	close(h.done)
	return true
}

// take reads the result slot. Callers must have observed done closed.
func (h *Handle) take() (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.result, h.err
}

// Wait blocks until the job reaches a terminal state or ctx is done.
// Completed yields the payload's value; Failed yields a PayloadError;
// Cancelled yields a JobCancelledError.
//
// When called from inside a payload (the payload context carries the
// executing worker), Wait does not park the worker: it services the
// worker's own deque, steals from peers, and drains the overflow queue
// between completion checks. A worker waiting on a job only reachable
// through its own queue therefore makes progress instead of
// deadlocking.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	if w := workerFromContext(ctx); w != nil && w.s == h.s {
		return h.waitHelping(ctx, w)
	}
	select {
	case <-h.done:
		return h.take()
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Handle) waitHelping(ctx context.Context, w *worker) (any, error) {
	for {
		select {
		case <-h.done:
			return h.take()
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		// Snapshot before scanning: work pushed after the snapshot
		// closes the wake channel we are about to park on.
		wake := h.s.snapshot()
		if j := w.next(); j != nil {
			w.execute(j)
			continue
		}
		select {
		case <-h.done:
			return h.take()
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}
