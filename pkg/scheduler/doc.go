// Package scheduler implements a work-stealing parallel job scheduler
// with dependency tracking.
//
// The scheduler manages a fixed pool of workers, each owning a
// double-ended job queue. Jobs are submitted via Submit and return a
// Handle used to wait for, inspect, or collect the result. Jobs may
// name other jobs as prerequisites; a job runs only after all of its
// prerequisites have reached a terminal state.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────────┐
//	│                            Scheduler                                │
//	│                                                                     │
//	│  ┌──────────────┐      ┌──────────────┐      ┌──────────────┐       │
//	│  │   Worker 0   │      │   Worker 1   │      │   Worker N-1 │       │
//	│  │ ┌──────────┐ │ steal│ ┌──────────┐ │ steal│ ┌──────────┐ │       │
//	│  │ │  deque   │◄│──────│►│  deque   │◄│──────│►│  deque   │ │       │
//	│  │ └──────────┘ │      │ └──────────┘ │      │ └──────────┘ │       │
//	│  └──────▲───────┘      └──────▲───────┘      └──────▲───────┘       │
//	│         │                     │                     │               │
//	│         └─────────────────────┼─────────────────────┘               │
//	│                               │                                     │
//	│  ┌────────────────────────────┴────────────────────────────┐        │
//	│  │                     Overflow Queue                      │        │
//	│  │  [job] [job] [job] ...                                  │        │
//	│  └────────────────────────▲────────────────────────────────┘        │
//	│                           │                                         │
//	│  ┌────────────────────────┴──────────┐                              │
//	│  │        Dependency Tracker         │                              │
//	│  │  gated jobs, waiter lists         │                              │
//	│  └────────────────────────▲──────────┘                              │
//	│                           │                                         │
//	│                 Submit(ctx, fn, prereqs...)                         │
//	└─────────────────────────────────────────────────────────────────────┘
//
// # Core Components
//
// Scheduler:
//   - Owns the worker pool, the overflow queue, and the tracker
//   - Routes submissions and dependency releases to worker deques
//   - Rotates a wake channel to park and wake idle workers
//   - Supports draining and non-draining shutdown via Shutdown()
//
// Worker:
//   - Runs one goroutine bound to one deque
//   - Scans in fixed order: own deque, peers, overflow queue
//   - Recovers payload panics and records them as job failures
//
// Deque:
//   - Hot end (bottom): owner pushes and pops, newest first
//   - Cold end (top): external submissions enter, thieves steal oldest
//
// Tracker:
//   - Holds jobs gated on prerequisites with a remaining counter
//   - Releases each gated job exactly once, on its last prerequisite
//
// Handle:
//   - The caller's view of one job: state, result slot, done channel
//   - Wait blocks until terminal; WaitAll collects a whole batch
//
// # Job Lifecycle
//
//	Submit(prereqs) ─► Pending ────────────────► Ready ─► Running ─► Completed
//	                      │    last prerequisite  ▲  │       │
//	                      │    terminal           │  │       └─────► Failed
//	Submit(no prereqs) ───│───────────────────────┘  │
//	                      │                          │ shutdown sweep
//	                      └────────► Cancelled ◄─────┘
//	                     doom / sweep
//
// Completed, Failed, and Cancelled are terminal. A Running job is
// never cancelled: once a payload starts it finishes on its own terms.
//
// # Submission Flow
//
//  1. Client calls Submit(ctx, fn, prereqs...)
//     │
//     ▼
//  2. Scheduler allocates the Handle (state Pending) and registers the
//     prerequisites with the tracker
//     │
//     ▼
//  3. No unmet prerequisites: handle flips to Ready and the job is
//     queued:
//     - submitting worker's own deque, hot end, when ctx is a payload
//     context of this scheduler
//     - otherwise the cold end of a deque picked round-robin
//     - otherwise (before Start) the overflow queue
//     │
//     ▼
//  4. Unmet prerequisites: the job waits in the tracker; the last
//     prerequisite to finish releases it to the finishing worker's
//     deque
//     │
//     ▼
//  5. Submit returns the Handle without blocking
//
// # Worker Loop
//
// Each worker repeats a fixed scan until shutdown:
//
//	for {
//	    wake := s.snapshot()      // park target, taken before scanning
//	    if j := w.next(); j != nil {
//	        w.execute(j)          // own deque → steal peers → overflow
//	        continue
//	    }
//	    if w.s.workersShouldExit() {
//	        return
//	    }
//	    <-wake                    // park until the next work event
//	}
//
// next() pops the worker's own bottom first (newest local work, warm
// caches), then scans peers round-robin starting at the right
// neighbor, stealing their oldest job, then falls back to the shared
// overflow queue.
//
// # Parking and Wakeups
//
// Idle workers park on a rotating wake channel. Every work event
// (submission, release, completion, shutdown) closes the current
// channel and installs a fresh one. A worker snapshots the channel
// before scanning, so there is no window in which work arrives unseen
// and the worker parks anyway: work published after the snapshot
// closes the very channel the worker parks on.
//
// The spin-then-wait idle policy (WithIdlePolicy) adds a few yielding
// rescan passes before parking, trading CPU for wakeup latency.
//
// # Dependency Tracking
//
// Submit records each job's unmet prerequisite count. When a job
// reaches a terminal state the finishing worker notifies the tracker,
// which decrements every dependent's counter and hands back the jobs
// that hit zero. Release is exactly-once; the released job enters the
// finishing worker's own deque, keeping dependency chains on one
// worker while idle peers steal the excess.
//
// By default any terminal prerequisite state counts: dependents of a
// failed or cancelled prerequisite still run, and learn of the failure
// only if they wait on it themselves. WithCancelOnFailure inverts
// this: a failed prerequisite cancels its dependents transitively.
//
// # Waiting Inside a Payload
//
// A payload may submit new jobs and wait on them. Handle.Wait called
// with the payload's context recognizes the executing worker and,
// instead of parking the worker goroutine, services the queues in a
// nested help loop until the target handle is terminal. A worker
// waiting on a job buried in its own deque therefore runs it instead
// of deadlocking, including with a single worker.
//
//	s.Submit(ctx, func(ctx context.Context) (any, error) {
//	    inner, err := s.Submit(ctx, innerWork)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return inner.Wait(ctx) // helps instead of blocking the worker
//	})
//
// # Panic Recovery
//
// The payload boundary recovers panics:
//
//	defer func() {
//	    if r := recover(); r != nil {
//	        err = srvErrors.NewPayloadPanicError(r)
//	    }
//	}()
//
// The job is recorded as Failed with a PayloadError carrying the panic
// value and the worker goroutine lives on.
//
// # Shutdown
//
// Shutdown(drain) stops the scheduler; the first call wins and blocks
// until every worker goroutine has exited.
//
// Draining (drain=true):
//  1. Submit starts refusing new work
//  2. Workers keep running until nothing is outstanding, gated jobs
//     included
//  3. Workers exit; every handle ends Completed or Failed
//
// Non-draining (drain=false):
//  1. Submit starts refusing new work
//  2. All deques, the overflow queue, and the tracker are swept; every
//     not-yet-running job flips to Cancelled exactly once
//  3. The run context is cancelled as a cooperative stop signal
//  4. In-flight payloads finish on their own terms (Completed or
//     Failed), then workers exit
//
// # Usage Example
//
//	s := scheduler.New()
//	if err := s.Start(scheduler.DefaultWorkerCount()); err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Shutdown(true)
//
//	fetch, _ := s.Submit(ctx, fetchSources)
//	build, _ := s.Submit(ctx, buildTree, fetch)
//	test, _ := s.Submit(ctx, runTests, build)
//
//	if _, err := test.Wait(ctx); err != nil {
//	    log.Printf("pipeline failed: %v", err)
//	}
package scheduler
