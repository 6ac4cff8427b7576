// Package handlers implements the HTTP API layer of the jobforge
// daemon.
//
// Handlers delegate all scheduling and persistence work to the services
// layer and focus on request validation, response formatting, and HTTP
// semantics.
//
// # Architecture Overview
//
//	┌─────────────────────────────────────────────────────────────────┐
//	│                     HTTP Request (Gin)                          │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Handler (this package)                     │
//	│  - Request validation                                           │
//	│  - Parameter parsing                                            │
//	│  - Error mapping to HTTP status codes                           │
//	│  - Model-to-API conversion                                      │
//	└─────────────────────────────────────────────────────────────────┘
//	                              │
//	                              ▼
//	┌─────────────────────────────────────────────────────────────────┐
//	│                      Services Layer                             │
//	│                         Runner                                  │
//	└─────────────────────────────────────────────────────────────────┘
//
// # Handler Structure
//
// All handlers are methods on a single Handler struct that holds the
// runner service:
//
//	type Handler struct {
//	    runner *services.Runner
//	}
//
// Routes are attached with RegisterRoutes, which the server calls with
// the /api/v1 router group:
//
//	handlers.New(runner).RegisterRoutes(apiGroup)
//
// # API Endpoints
//
//	┌────────┬───────────────────┬──────────────────────────────────────┐
//	│ Method │ Endpoint          │ Description                          │
//	├────────┼───────────────────┼──────────────────────────────────────┤
//	│ POST   │ /runs             │ Submit a YAML pipeline, start a run  │
//	│ GET    │ /runs             │ List runs with filtering/pagination  │
//	│ GET    │ /runs/{id}        │ Get run detail with task runs        │
//	│ GET    │ /scheduler/stats  │ Scheduler counters snapshot          │
//	│ GET    │ /health           │ Liveness probe                       │
//	└────────┴───────────────────┴──────────────────────────────────────┘
//
// # Submit Handler
//
// POST /runs accepts a raw YAML pipeline document (at most 1 MiB):
//
//	name: build-and-test
//	tasks:
//	  - name: fetch
//	    run: git fetch --all
//	  - name: build
//	    run: make build
//	    needs: [fetch]
//
// Response: 202 Accepted with the new run:
//
//	{ "id": "6b3c…", "pipeline": "build-and-test", "state": "pending" }
//
// The run executes asynchronously; clients poll GET /runs/{id}.
//
// Errors:
//   - 400 Bad Request: malformed YAML, empty name, duplicate task
//     names, unknown needs references, dependency cycles
//   - 503 Service Unavailable: submission while the daemon shuts down
//
// # List Handler
//
// GET /runs lists run history, newest first.
//
// Query Parameters:
//
//	┌───────────┬──────────┬─────────────────────────────────────────┐
//	│ Parameter │ Type     │ Description                             │
//	├───────────┼──────────┼─────────────────────────────────────────┤
//	│ state     │ []string │ Filter by run state (OR logic)          │
//	│ pipeline  │ []string │ Filter by pipeline name (OR logic)      │
//	│ page      │ int      │ Page number (default: 1)                │
//	│ pageSize  │ int      │ Items per page (default: 20, max: 100)  │
//	└───────────┴──────────┴─────────────────────────────────────────┘
//
// Example: /runs?state=failed&pipeline=nightly&page=2&pageSize=50
//
// Response:
//
//	{
//	    "page": 2,
//	    "pageCount": 5,
//	    "total": 230,
//	    "runs": [ { "id": "…", "pipeline": "nightly", "state": "failed", … } ]
//	}
//
// Unknown state values and non-positive page numbers are rejected with
// 400 Bad Request.
//
// # Get Handler
//
// GET /runs/{id} returns the run detail including every task run with
// its captured output, error text, and the worker that executed it.
//
// Errors:
//   - 400 Bad Request: id is not a UUID
//   - 404 Not Found: no run with that id
//
// # Stats Handler
//
// GET /scheduler/stats returns the live scheduler counters:
//
//	{
//	    "workers": 4,
//	    "submitted": 1200,
//	    "completed": 1180,
//	    "failed": 3,
//	    "cancelled": 0,
//	    "stolen": 312,
//	    "outstanding": 17,
//	    "perWorker": [ { "id": 0, "executed": 310, "stolen": 80 }, … ]
//	}
//
// # Error Handling
//
// Non-2xx responses share one body shape:
//
//	{ "error": "error message" }
//
// HTTP Status Code Mapping:
//
//	┌─────────────────────────┬────────┬──────────────────────────────┐
//	│ Error Type              │ Status │ When                         │
//	├─────────────────────────┼────────┼──────────────────────────────┤
//	│ ValidationError         │ 400    │ Invalid pipeline or params   │
//	│ ResourceNotFoundError   │ 404    │ Unknown run id               │
//	│ SchedulerClosedError    │ 503    │ Submission during shutdown   │
//	│ Internal error          │ 500    │ Unexpected service errors    │
//	└─────────────────────────┴────────┴──────────────────────────────┘
//
// # Model Conversion
//
// Handlers convert between internal models and API types using the
// constructors in api/v1/extension.go:
//
//   - v1.NewRunFromModel(models.Run, []models.TaskRun) → v1.Run
//   - v1.NewRunSummaryFromModel(models.Run) → v1.RunSummary
//   - v1.SchedulerStats.FromStats(scheduler.Stats)
package handlers
