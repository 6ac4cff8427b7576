// Package services implements the business logic layer for jobforge.
//
// This package sits between the HTTP handlers and the scheduler/store,
// turning accepted pipelines into scheduler jobs and recording every
// state change along the way.
//
// # Architecture Overview
//
//	Handlers (HTTP endpoints)
//	    │
//	    ▼
//	Runner ──► Scheduler (pkg/scheduler)
//	    │          │ executes payloads
//	    │          ▼
//	    │      Executor (sh -c)
//	    ▼
//	Store (runs, task_runs)
//
// # Runner
//
// Runner owns the scheduler, the store, and an Executor. Submit is the
// entry point: it validates the pipeline, writes the run and one task
// row per task, and submits every task as a scheduler job in
// topological order, wiring each task's needs to the prerequisite
// handles. Submit never waits for execution.
//
// Run State Machine:
//
//	┌─────────┐    ┌─────────┐    ┌───────────┐
//	│ pending │───►│ running │───►│ completed │
//	└─────────┘    └─────────┘    │ failed    │
//	     │              ▲         │ cancelled │
//	     │  first task  │         └───────────┘
//	     └──────────────┘          (terminal)
//
// Tracking happens in the background:
//   - The payload records the task start (worker id, started_at) and
//     flips the run to running on the first start.
//   - One watcher goroutine per task waits on the job handle and
//     records the terminal task state with captured output and error.
//   - One finalizer goroutine per run waits for the watchers, derives
//     the run state from the task records (any failed → failed, any
//     cancelled without failures → cancelled, otherwise completed),
//     and closes the run out.
//
// Key behaviors:
//   - A failed task does not stop independent tasks; only jobs gated
//     on it are affected, and only when the scheduler runs with
//     cancel-on-failure.
//   - A non-draining shutdown sweeps queued tasks to cancelled;
//     running tasks finish and are recorded normally.
//   - Shutdown(drain) returns only after every in-flight run has been
//     written to the store.
//
// Usage:
//
//	runner := services.NewRunner(sched, st, services.ShellExecutor{})
//	run, err := runner.Submit(ctx, p)
//	run, tasks, err := runner.Get(ctx, run.ID)
//	runner.Shutdown(true)
//
// # Executor
//
// Executor runs one task to completion and returns its captured
// output. ShellExecutor is the daemon implementation: `sh -c` with the
// task's env entries appended to the daemon environment, stdout and
// stderr captured interleaved, context cancellation killing the
// process. Tests inject mock executors so no processes spawn.
//
// # Listing
//
// List mirrors the store's functional options through RunListParams
// (states, pipelines, limit, offset) and always counts the unpaginated
// total for page math. ActiveRuns reads the mutex-guarded in-flight
// table instead of the store, so it reflects submissions that have not
// finished writing yet.
//
// # Thread Safety
//
// Runner:
//   - In-flight table protected by sync.Mutex
//   - Watcher and finalizer goroutines tracked by a WaitGroup
//   - Store writes serialize on the single DuckDB connection
package services
