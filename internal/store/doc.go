// Package store implements the data access layer for jobforge.
//
// This package provides persistent run history using DuckDB. Every
// accepted pipeline run and every task execution inside it is recorded
// here, so runs can be inspected over the API after the fact.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                         Store (facade)                          │
//	├─────────────────────────────────────────────────────────────────┤
//	│           RunStore             │          TaskStore             │
//	│              ▼                 │             ▼                  │
//	│             runs               │          task_runs             │
//	├────────────────────────────────┴────────────────────────────────┤
//	│                        QueryInterceptor                         │
//	│                 (debug logging over *sql.DB)                    │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Tables
//
// Created by local migrations (internal/store/migrations):
//
//	┌────────────────────┬─────────────────────────────────────────────┐
//	│  Table             │  Purpose                                    │
//	├────────────────────┼─────────────────────────────────────────────┤
//	│  runs              │  One row per submitted pipeline run         │
//	│  task_runs         │  One row per task inside a run              │
//	│  schema_migrations │  Migration version tracking                 │
//	└────────────────────┴─────────────────────────────────────────────┘
//
// Both tables are append-only: rows are inserted once when a run is
// accepted and then updated in place as states change. There are no
// upserts and no deletes.
//
// # Initialization Flow
//
//	NewDB(dataFolder)
//	    ├── Opens <dataFolder>/jobforge.db (or ":memory:")
//	    ├── Retries open+ping with exponential backoff (file lock of a
//	    │   previous instance that is still shutting down)
//	    └── Pins the pool to a single connection (embedded single-writer)
//
//	migrations.Run(ctx, db)
//	    └── Applies pending versions, recorded in schema_migrations
//
//	NewStore(db)
//	    └── Initializes RunStore and TaskStore over the QueryInterceptor
//
// # RunStore
//
// Methods:
//   - Create(ctx, run) → error
//   - Get(ctx, id) → *models.Run (ResourceNotFoundError on no rows)
//   - List(ctx, opts...) → []models.Run
//   - Count(ctx, opts...) → int
//   - SetState(ctx, id, state) → error (stamps started_at on running)
//   - Finish(ctx, id, state, errText) → error (stamps finished_at)
//
// List Options:
//
// RunStore.List uses the functional options pattern. Each ListOption is
// a function that modifies the squirrel query builder. Options can be
// combined:
//
//	runs, err := store.Runs().List(ctx,
//	    store.ByStates("running", "failed"),
//	    store.ByPipeline("nightly-build"),
//	    store.WithDefaultSort(),
//	    store.WithLimit(20),
//	    store.WithOffset(0),
//	)
//
// Filtering Options:
//
//   - ByStates(states ...string)
//     Filters runs by state. Multiple states use OR logic.
//     SQL: WHERE state IN (...)
//
//   - ByPipeline(names ...string)
//     Filters runs by pipeline name. Multiple names use OR logic.
//     SQL: WHERE pipeline IN (...)
//
// Pagination Options:
//
//   - WithLimit(limit uint64)
//     Limits the number of results returned.
//     SQL: LIMIT limit
//
//   - WithOffset(offset uint64)
//     Skips the first N results (for pagination).
//     SQL: OFFSET offset
//
// Sorting Options:
//
//   - WithDefaultSort()
//     Orders newest first (created_at DESC), run id as tie-breaker.
//
// # TaskStore
//
// Methods:
//   - CreateBatch(ctx, tasks) → error (one pending row per task)
//   - ListByRun(ctx, runID) → []models.TaskRun
//   - MarkRunning(ctx, runID, name, worker) → error
//   - Finish(ctx, runID, name, state, output, errText) → error
//
// CreateBatch preserves the order of its argument slice (the pipeline's
// topological order) in a seq column, and ListByRun returns rows in
// that order.
//
// # QueryInterceptor
//
// All database operations go through a QueryInterceptor that debug-logs
// each statement before it runs. This gives visibility into SQL
// execution without touching the individual stores.
//
// Logged operations:
//   - QueryRowContext
//   - QueryContext
//   - ExecContext
package store
