// Package v1 defines the request and response types of the jobforge
// HTTP API.
package v1

import "time"

// RunState is the lifecycle state of a run as reported by the API.
type RunState string

const (
	RunStatePending   RunState = "pending"
	RunStateRunning   RunState = "running"
	RunStateCompleted RunState = "completed"
	RunStateFailed    RunState = "failed"
	RunStateCancelled RunState = "cancelled"
)

// TaskState is the lifecycle state of a single task within a run.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

// Run is the detail view of a pipeline run, including its task runs.
type Run struct {
	Id         string     `json:"id"`
	Pipeline   string     `json:"pipeline"`
	State      RunState   `json:"state"`
	Error      *string    `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Tasks      []TaskRun  `json:"tasks"`
}

// RunSummary is the list view of a run, without task details.
type RunSummary struct {
	Id         string     `json:"id"`
	Pipeline   string     `json:"pipeline"`
	State      RunState   `json:"state"`
	Error      *string    `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// TaskRun is one task execution within a run.
type TaskRun struct {
	Name       string     `json:"name"`
	State      TaskState  `json:"state"`
	Output     string     `json:"output,omitempty"`
	Error      *string    `json:"error,omitempty"`
	Worker     *int       `json:"worker,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// RunList is the paginated response of the run listing endpoint.
type RunList struct {
	Page      int          `json:"page"`
	PageCount int          `json:"pageCount"`
	Total     int          `json:"total"`
	Runs      []RunSummary `json:"runs"`
}

// SubmitRunResponse acknowledges an accepted pipeline submission.
type SubmitRunResponse struct {
	Id       string   `json:"id"`
	Pipeline string   `json:"pipeline"`
	State    RunState `json:"state"`
}

// WorkerStats reports per-worker execution counters.
type WorkerStats struct {
	Id       int    `json:"id"`
	Executed uint64 `json:"executed"`
	Stolen   uint64 `json:"stolen"`
}

// SchedulerStats is a snapshot of the scheduler counters.
type SchedulerStats struct {
	Workers     int           `json:"workers"`
	Submitted   uint64        `json:"submitted"`
	Completed   uint64        `json:"completed"`
	Failed      uint64        `json:"failed"`
	Cancelled   uint64        `json:"cancelled"`
	Stolen      uint64        `json:"stolen"`
	Outstanding int64         `json:"outstanding"`
	PerWorker   []WorkerStats `json:"perWorker"`
}

// Error is the body of every non-2xx API response.
type Error struct {
	Error string `json:"error"`
}
