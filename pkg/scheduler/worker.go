package scheduler

import (
	"context"
	"runtime"
	"sync/atomic"

	"go.uber.org/zap"

	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

// workerCtxKey tags payload contexts with the executing worker, so
// Submit and Wait calls made from inside a payload are recognized as
// worker-context calls.
type workerCtxKey struct{}

func workerFromContext(ctx context.Context) *worker {
	w, _ := ctx.Value(workerCtxKey{}).(*worker)
	return w
}

// WorkerID returns the pool index of the worker executing the payload
// that received ctx. The second return is false when ctx did not come
// from a payload.
func WorkerID(ctx context.Context) (int, bool) {
	if w := workerFromContext(ctx); w != nil {
		return w.id, true
	}
	return 0, false
}

type worker struct {
	id    int
	s     *Scheduler
	deque *deque

	// ctx is handed to every payload this worker runs: the scheduler's
	// run context tagged with the worker itself.
	ctx context.Context

	executed atomic.Uint64
	stolen   atomic.Uint64
}

func newWorker(s *Scheduler, id int) *worker {
	w := &worker{id: id, s: s, deque: &deque{}}
	w.ctx = context.WithValue(s.runCtx, workerCtxKey{}, w)
	return w
}

// next returns a runnable job or nil. The scan order is fixed: own
// deque first (hot end), then peers round-robin starting at the right
// neighbor (their cold ends), then the shared overflow queue.
func (w *worker) next() *job {
	if j := w.deque.popBottom(); j != nil {
		return j
	}
	// The workers slice is written once during Start, before any
	// worker goroutine runs, and never mutated afterwards.
	peers := w.s.workers
	n := len(peers)
	for i := 1; i < n; i++ {
		if j := peers[(w.id+i)%n].deque.popTop(); j != nil {
			w.stolen.Add(1)
			return j
		}
	}
	return w.s.popOverflow()
}

// execute runs j to completion on this worker. The payload boundary
// recovers panics; a panic fails the job and the worker goroutine
// lives on.
func (w *worker) execute(j *job) {
	h := j.handle
	if !h.transition(StateReady, StateRunning) {
		// A job swept to Cancelled between release and dequeue is
		// dropped here. Any other state is a lifecycle bug.
		if st := h.State(); st != StateCancelled {
			zap.S().Named("scheduler").DPanicw("dequeued job in unexpected state",
				"job_id", h.id, "state", st)
		}
		return
	}

	result, err := w.runPayload(j)
	if err != nil && !srvErrors.IsPayloadError(err) {
		err = srvErrors.NewPayloadError(err)
	}
	if !h.complete(result, err) {
		zap.S().Named("scheduler").DPanicw("result slot written twice",
			"job_id", h.id, "state", h.State())
		return
	}
	if err != nil {
		w.s.failed.Add(1)
	} else {
		w.s.completed.Add(1)
	}
	w.executed.Add(1)
	w.s.finishAndRelease(h, w)
}

func (w *worker) runPayload(j *job) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.S().Named("scheduler").Errorw("payload panicked",
				"job_id", j.handle.id, "panic", r)
			result = nil
			err = srvErrors.NewPayloadPanicError(r)
		}
	}()
	return j.fn(w.ctx)
}

// spin rescans all queues a few times, yielding between passes, before
// the caller falls back to parking.
func (w *worker) spin() *job {
	for i := 0; i < idleSpinPasses; i++ {
		runtime.Gosched()
		if j := w.next(); j != nil {
			return j
		}
	}
	return nil
}

// run is the worker goroutine body. Each pass snapshots the wake
// channel before scanning, so work published after the snapshot closes
// the very channel the worker would park on: a wakeup between scan and
// park cannot be lost.
func (w *worker) run() {
	defer w.s.wg.Done()
	for {
		wake := w.s.snapshot()
		if j := w.next(); j != nil {
			w.execute(j)
			continue
		}
		if w.s.opts.idlePolicy == IdleSpinThenWait {
			if j := w.spin(); j != nil {
				w.execute(j)
				continue
			}
		}
		if w.s.workersShouldExit() {
			zap.S().Named("scheduler").Debugw("worker exiting",
				"worker_id", w.id, "executed", w.executed.Load(), "stolen", w.stolen.Load())
			return
		}
		<-wake
	}
}
