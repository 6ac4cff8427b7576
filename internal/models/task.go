package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TaskState represents the lifecycle state of a single task within a run.
type TaskState string

const (
	TaskStatePending   TaskState = "pending"
	TaskStateRunning   TaskState = "running"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCancelled TaskState = "cancelled"
)

func ParseTaskState(s string) (TaskState, error) {
	switch s {
	case "pending":
		return TaskStatePending, nil
	case "running":
		return TaskStateRunning, nil
	case "completed":
		return TaskStateCompleted, nil
	case "failed":
		return TaskStateFailed, nil
	case "cancelled":
		return TaskStateCancelled, nil
	default:
		return "", fmt.Errorf("invalid task state: %s", s)
	}
}

// Terminal reports whether no further state changes are possible.
func (s TaskState) Terminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCancelled:
		return true
	default:
		return false
	}
}

// TaskRun is the execution record of one pipeline task within a run.
type TaskRun struct {
	RunID      uuid.UUID
	Name       string
	State      TaskState
	Output     string
	Error      string
	Worker     int
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// DeriveRunState computes a run's state from its task records. A failed
// task fails the run, cancellations without failures cancel it, and a
// run with every task completed is completed. Any non-terminal task
// leaves the run running.
func DeriveRunState(tasks []TaskRun) RunState {
	var failed, cancelled bool
	for _, t := range tasks {
		switch t.State {
		case TaskStateFailed:
			failed = true
		case TaskStateCancelled:
			cancelled = true
		case TaskStatePending, TaskStateRunning:
			return RunStateRunning
		}
	}
	switch {
	case failed:
		return RunStateFailed
	case cancelled:
		return RunStateCancelled
	default:
		return RunStateCompleted
	}
}
