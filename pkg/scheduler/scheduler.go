package scheduler

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

// Scheduler runs submitted payloads on a fixed pool of work-stealing
// workers. Construct with New, spawn workers with Start, feed it with
// Submit, stop it with Shutdown. All methods are safe for concurrent
// use.
//
// Lock order, where locks meet: scheduler mutex, then tracker mutex,
// then handle mutex. Deque mutexes are leaves and are never held while
// taking another lock.
type Scheduler struct {
	opts options

	lifecycle atomic.Int32
	drainMode atomic.Bool

	// mu guards the wake channel rotation, the workers slice until
	// Start publishes it, and the overflow queue.
	mu             sync.Mutex
	wake           chan struct{}
	workers        []*worker
	overflow       *queue[*job]
	overflowClosed bool

	tracker *tracker
	wg      sync.WaitGroup

	// runCtx is the parent of every payload context. A non-draining
	// shutdown cancels it; payloads that honor it wind down early.
	runCtx    context.Context
	runCancel context.CancelFunc

	nextID      atomic.Uint64
	outstanding atomic.Int64
	rr          atomic.Uint64

	submitted atomic.Uint64
	completed atomic.Uint64
	failed    atomic.Uint64
	cancelled atomic.Uint64
}

// New builds a scheduler in the Created state. Nothing runs until
// Start; jobs submitted before Start wait in the overflow queue.
func New(opts ...Option) *Scheduler {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	return &Scheduler{
		opts:      o,
		wake:      make(chan struct{}),
		overflow:  newQueue[*job](o.overflowCapacity),
		tracker:   newTracker(o.cancelOnFailure),
		runCtx:    runCtx,
		runCancel: runCancel,
	}
}

func (s *Scheduler) phase() lifecycle {
	return lifecycle(s.lifecycle.Load())
}

// signal publishes a work event: it closes the current wake channel
// and installs a fresh one. Everyone parked on the old channel wakes
// and rescans.
func (s *Scheduler) signal() {
	s.mu.Lock()
	close(s.wake)
	s.wake = make(chan struct{})
	s.mu.Unlock()
}

// snapshot returns the channel the next signal will close. Taking the
// snapshot before scanning the queues is what makes parking safe: any
// work published after the snapshot closes this very channel.
func (s *Scheduler) snapshot() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wake
}

// Start spawns the worker pool. It fails with a ConfigurationError for
// a non-positive count and with an AlreadyStartedError on any second
// call, including after Shutdown. Everything queued before Start
// becomes eligible immediately.
func (s *Scheduler) Start(workers int) error {
	if workers < 1 {
		return srvErrors.NewConfigurationError("worker count must be at least 1, got %d", workers)
	}

	s.mu.Lock()
	if lifecycle(s.lifecycle.Load()) != lifecycleCreated {
		s.mu.Unlock()
		return srvErrors.NewAlreadyStartedError()
	}
	pool := make([]*worker, workers)
	for i := range pool {
		pool[i] = newWorker(s, i)
	}
	s.workers = pool
	s.lifecycle.Store(int32(lifecycleRunning))
	s.mu.Unlock()

	s.wg.Add(workers)
	for _, w := range pool {
		go w.run()
	}
	zap.S().Named("scheduler").Infow("scheduler started",
		"workers", workers, "idle_policy", s.opts.idlePolicy)
	return nil
}

// Submit hands fn to the scheduler and returns its handle without
// blocking. With no unmet prerequisites the job goes straight to a
// queue: the submitting worker's own deque when ctx is a payload
// context of this scheduler, otherwise a round-robin pick across the
// pool, otherwise the overflow queue. With unmet prerequisites it
// waits in the tracker until the last one reaches a terminal state.
//
// ctx only identifies the submitter; the payload itself always
// receives the scheduler's run context. After Shutdown has begun,
// Submit fails with a SchedulerClosedError.
func (s *Scheduler) Submit(ctx context.Context, fn Work, prereqs ...*Handle) (*Handle, error) {
	switch s.phase() {
	case lifecycleShuttingDown, lifecycleStopped:
		return nil, srvErrors.NewSchedulerClosedError()
	}
	if fn == nil {
		return nil, srvErrors.NewConfigurationError("payload must not be nil")
	}
	for _, p := range prereqs {
		if p != nil && p.s != s {
			return nil, srvErrors.NewConfigurationError("prerequisite handle belongs to a different scheduler")
		}
	}

	h := newHandle(s, JobID(s.nextID.Add(1)))
	j := &job{fn: fn, handle: h}
	s.submitted.Add(1)
	s.outstanding.Add(1)

	gated, doomed := s.tracker.register(j, prereqs)
	if doomed {
		s.cancelJob(j)
		s.signal()
		return h, nil
	}
	if gated {
		return h, nil
	}
	if !h.transition(StatePending, StateReady) {
		zap.S().Named("scheduler").DPanicw("fresh handle in unexpected state",
			"job_id", h.id, "state", h.State())
		return h, nil
	}
	s.dispatch(ctx, j)
	return h, nil
}

// dispatch queues a Ready job. Worker-context submissions land on the
// submitter's own hot end so fresh work runs next; external ones go to
// the cold end of a round-robin pick, keeping hot ends owner-only.
// Closed or missing deques fall through to the overflow queue, and
// when that is closed too the scheduler is mid-shutdown and the job is
// cancelled instead.
func (s *Scheduler) dispatch(ctx context.Context, j *job) {
	defer s.signal()

	if w := workerFromContext(ctx); w != nil && w.s == s {
		if w.deque.pushBottom(j) || s.pushOverflow(j) {
			return
		}
		s.cancelJob(j)
		return
	}

	s.mu.Lock()
	pool := s.workers
	s.mu.Unlock()
	if n := len(pool); n > 0 {
		idx := int((s.rr.Add(1) - 1) % uint64(n))
		if pool[idx].deque.pushTop(j) {
			return
		}
	}
	if s.pushOverflow(j) {
		return
	}
	s.cancelJob(j)
}

func (s *Scheduler) pushOverflow(j *job) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overflowClosed {
		return false
	}
	s.overflow.Push(j)
	return true
}

func (s *Scheduler) popOverflow() *job {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overflow.Len() == 0 {
		return nil
	}
	return s.overflow.Pop()
}

// cancelJob moves j to Cancelled if it has not started running. The
// counters move only when this call is the one that cancelled it.
func (s *Scheduler) cancelJob(j *job) {
	if j.handle.cancel() {
		s.cancelled.Add(1)
		s.outstanding.Add(-1)
	}
}

// finishAndRelease is the post-terminal bookkeeping for h: resolve
// dependents through the tracker, cancel the doomed ones, queue the
// released ones, and only then retire h from the outstanding count.
// The order matters for draining shutdowns: outstanding cannot reach
// zero while a release caused by this completion is still in flight.
func (s *Scheduler) finishAndRelease(h *Handle, w *worker) {
	release, doom := s.tracker.onCompleted(h)
	for _, j := range doom {
		s.cancelJob(j)
	}
	for _, j := range release {
		s.release(j, w)
	}
	s.outstanding.Add(-1)
	s.signal()
}

// release flips a tracker-released job to Ready and queues it on the
// releasing worker's hot end, falling back to the overflow queue and
// finally to cancellation during shutdown.
func (s *Scheduler) release(j *job, w *worker) {
	if !j.handle.transition(StatePending, StateReady) {
		if st := j.handle.State(); st != StateCancelled {
			zap.S().Named("scheduler").DPanicw("released job in unexpected state",
				"job_id", j.handle.id, "state", st)
		}
		return
	}
	if w != nil && w.deque.pushBottom(j) {
		return
	}
	if s.pushOverflow(j) {
		return
	}
	s.cancelJob(j)
}

// workersShouldExit reports whether an idle worker that found nothing
// to run may return: always during a non-draining shutdown, and once
// the outstanding count hits zero during a draining one.
func (s *Scheduler) workersShouldExit() bool {
	if s.phase() != lifecycleShuttingDown {
		return false
	}
	return !s.drainMode.Load() || s.outstanding.Load() == 0
}

// WaitAll blocks until every handle is terminal or ctx is done. There
// is no short-circuit: a failure in one job does not cut the wait for
// the others. The result has one slot per handle, in order: nil for
// Completed, the job's PayloadError or JobCancelledError otherwise,
// and ctx.Err() for handles still unresolved when ctx fires.
func (s *Scheduler) WaitAll(ctx context.Context, handles ...*Handle) []error {
	errs := make([]error, len(handles))
	for i, h := range handles {
		_, errs[i] = h.Wait(ctx)
	}
	return errs
}

// Shutdown stops the scheduler and blocks until all workers have
// exited. The first call decides the mode and does the work; any later
// call, with either flag, returns immediately.
//
// With drain=true every outstanding job, gated ones included, runs to
// a terminal state first. With drain=false all queues and the tracker
// are swept: not-yet-running jobs go to Cancelled exactly once, the
// run context is cancelled as a cooperative stop signal, and only
// payloads already running are waited for. A running payload always
// ends as Completed or Failed, never Cancelled.
//
// On a never-started scheduler both modes cancel everything queued,
// since nothing will ever run it.
func (s *Scheduler) Shutdown(drain bool) {
	s.mu.Lock()
	switch lifecycle(s.lifecycle.Load()) {
	case lifecycleCreated:
		s.lifecycle.Store(int32(lifecycleStopped))
		s.mu.Unlock()
		s.sweep()
		s.runCancel()
		s.signal()
		zap.S().Named("scheduler").Infow("scheduler stopped before start",
			"cancelled", s.cancelled.Load())
		return
	case lifecycleRunning:
		s.drainMode.Store(drain)
		s.lifecycle.Store(int32(lifecycleShuttingDown))
		s.mu.Unlock()
	default:
		s.mu.Unlock()
		return
	}

	if !drain {
		s.sweep()
		s.runCancel()
	}
	s.signal()
	s.wg.Wait()

	// Submissions and releases can race the shutdown decision; a
	// second sweep after the workers are gone retires anything that
	// slipped into a queue or the tracker meanwhile.
	s.sweep()
	s.runCancel()
	s.lifecycle.Store(int32(lifecycleStopped))
	s.signal()
	zap.S().Named("scheduler").Infow("scheduler stopped",
		"drain", drain,
		"completed", s.completed.Load(),
		"failed", s.failed.Load(),
		"cancelled", s.cancelled.Load())
}

// sweep closes every queue, empties the tracker, and cancels whatever
// had not started running. Queues stay closed, so pushes racing the
// sweep fail over to the caller's fallback chain and end in cancelJob;
// a second sweep finds nothing left.
func (s *Scheduler) sweep() {
	s.mu.Lock()
	pool := s.workers
	s.mu.Unlock()

	var orphans []*job
	for _, w := range pool {
		orphans = append(orphans, w.deque.drain()...)
	}
	s.mu.Lock()
	s.overflowClosed = true
	for s.overflow.Len() > 0 {
		orphans = append(orphans, s.overflow.Pop())
	}
	s.mu.Unlock()
	orphans = append(orphans, s.tracker.drain()...)

	for _, j := range orphans {
		s.cancelJob(j)
	}
	if len(orphans) > 0 {
		zap.S().Named("scheduler").Infow("cancelled queued jobs", "count", len(orphans))
	}
}

// Stats returns a point-in-time snapshot of scheduler activity. The
// counters are independently atomic; totals read mid-flight can be
// momentarily inconsistent with one another.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	pool := s.workers
	s.mu.Unlock()

	st := Stats{
		Workers:     len(pool),
		Submitted:   s.submitted.Load(),
		Completed:   s.completed.Load(),
		Failed:      s.failed.Load(),
		Cancelled:   s.cancelled.Load(),
		Outstanding: s.outstanding.Load(),
		PerWorker:   make([]WorkerStats, 0, len(pool)),
	}
	for _, w := range pool {
		ws := WorkerStats{ID: w.id, Executed: w.executed.Load(), Stolen: w.stolen.Load()}
		st.Stolen += ws.Stolen
		st.PerWorker = append(st.PerWorker, ws)
	}
	return st
}
