package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// RunState represents the lifecycle state of a pipeline run.
type RunState string

const (
	// RunStatePending - accepted, no task has started yet
	RunStatePending RunState = "pending"
	// RunStateRunning - at least one task is executing
	RunStateRunning RunState = "running"
	// RunStateCompleted - every task finished successfully
	RunStateCompleted RunState = "completed"
	// RunStateFailed - at least one task failed
	RunStateFailed RunState = "failed"
	// RunStateCancelled - tasks were cancelled and none failed
	RunStateCancelled RunState = "cancelled"
)

func ParseRunState(s string) (RunState, error) {
	switch s {
	case "pending":
		return RunStatePending, nil
	case "running":
		return RunStateRunning, nil
	case "completed":
		return RunStateCompleted, nil
	case "failed":
		return RunStateFailed, nil
	case "cancelled":
		return RunStateCancelled, nil
	default:
		return "", fmt.Errorf("invalid run state: %s", s)
	}
}

// Terminal reports whether no further state changes are possible.
func (s RunState) Terminal() bool {
	switch s {
	case RunStateCompleted, RunStateFailed, RunStateCancelled:
		return true
	default:
		return false
	}
}

// Run represents one submitted execution of a pipeline.
type Run struct {
	ID         uuid.UUID
	Pipeline   string
	State      RunState
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}
