package scheduler

import (
	"context"
	"fmt"
)

// Work is a job payload. The context it receives is scoped to the
// scheduler's run lifetime and identifies the executing worker; a
// non-draining shutdown cancels it as a cooperative stop signal.
type Work func(ctx context.Context) (any, error)

// JobID identifies a job within a single scheduler instance. IDs are
// monotonically increasing and never reused for the lifetime of the
// instance.
type JobID uint64

// State is the lifecycle state of a job handle.
//
// Pending and Ready jobs may still be cancelled; a Running job always
// finishes to Completed or Failed.
type State string

const (
	StatePending   State = "pending"
	StateReady     State = "ready"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether no further transitions are permitted from s.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

func ParseState(s string) (State, error) {
	switch State(s) {
	case StatePending, StateReady, StateRunning, StateCompleted, StateFailed, StateCancelled:
		return State(s), nil
	default:
		return "", fmt.Errorf("invalid job state: %s", s)
	}
}

// IdlePolicy selects how a worker behaves when it finds no runnable
// work anywhere.
type IdlePolicy string

const (
	// IdleWait parks the worker until new work, a dependency release,
	// or shutdown wakes it.
	IdleWait IdlePolicy = "wait"

	// IdleSpinThenWait makes a few yielding rescan passes before
	// parking, trading CPU for wake-up latency.
	IdleSpinThenWait IdlePolicy = "spin"
)

func ParseIdlePolicy(s string) (IdlePolicy, error) {
	switch IdlePolicy(s) {
	case IdleWait, IdleSpinThenWait:
		return IdlePolicy(s), nil
	default:
		return "", fmt.Errorf("invalid idle policy: %s", s)
	}
}

// lifecycle is the scheduler's own state machine. Every transition is
// one-way: Created -> Running -> ShuttingDown -> Stopped.
type lifecycle int32

const (
	lifecycleCreated lifecycle = iota
	lifecycleRunning
	lifecycleShuttingDown
	lifecycleStopped
)

func (l lifecycle) String() string {
	switch l {
	case lifecycleCreated:
		return "created"
	case lifecycleRunning:
		return "running"
	case lifecycleShuttingDown:
		return "shutting_down"
	case lifecycleStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats is a point-in-time snapshot of scheduler activity. Counters
// are cumulative since Start.
type Stats struct {
	Workers     int
	Submitted   uint64
	Completed   uint64
	Failed      uint64
	Cancelled   uint64
	Stolen      uint64
	Outstanding int64
	PerWorker   []WorkerStats
}

// WorkerStats counts a single worker's activity. Executed includes
// jobs the worker ran while helping a blocked Wait along.
type WorkerStats struct {
	ID       int
	Executed uint64
	Stolen   uint64
}
