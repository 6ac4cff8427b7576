package v1

import (
	"github.com/mgriffes/jobforge/internal/models"
	"github.com/mgriffes/jobforge/pkg/scheduler"
)

// NewRunFromModel converts a stored run and its task runs to the API
// detail view.
func NewRunFromModel(run models.Run, tasks []models.TaskRun) Run {
	apiRun := Run{
		Id:         run.ID.String(),
		Pipeline:   run.Pipeline,
		State:      runStateFromModel(run.State),
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		Tasks:      make([]TaskRun, 0, len(tasks)),
	}

	if run.Error != "" {
		apiRun.Error = &run.Error
	}

	for _, t := range tasks {
		apiRun.Tasks = append(apiRun.Tasks, NewTaskRunFromModel(t))
	}

	return apiRun
}

// NewRunSummaryFromModel converts a stored run to the API list view.
func NewRunSummaryFromModel(run models.Run) RunSummary {
	summary := RunSummary{
		Id:         run.ID.String(),
		Pipeline:   run.Pipeline,
		State:      runStateFromModel(run.State),
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}

	if run.Error != "" {
		summary.Error = &run.Error
	}

	return summary
}

// NewTaskRunFromModel converts a stored task run to its API shape.
func NewTaskRunFromModel(task models.TaskRun) TaskRun {
	apiTask := TaskRun{
		Name:       task.Name,
		State:      taskStateFromModel(task.State),
		Output:     task.Output,
		StartedAt:  task.StartedAt,
		FinishedAt: task.FinishedAt,
	}

	if task.Error != "" {
		apiTask.Error = &task.Error
	}

	// A worker index below zero means no worker ever picked the task up.
	if task.Worker >= 0 {
		worker := task.Worker
		apiTask.Worker = &worker
	}

	return apiTask
}

// FromStats fills the API snapshot from live scheduler counters.
func (s *SchedulerStats) FromStats(stats scheduler.Stats) {
	s.Workers = stats.Workers
	s.Submitted = stats.Submitted
	s.Completed = stats.Completed
	s.Failed = stats.Failed
	s.Cancelled = stats.Cancelled
	s.Stolen = stats.Stolen
	s.Outstanding = stats.Outstanding
	s.PerWorker = make([]WorkerStats, 0, len(stats.PerWorker))

	for _, w := range stats.PerWorker {
		s.PerWorker = append(s.PerWorker, WorkerStats{
			Id:       w.ID,
			Executed: w.Executed,
			Stolen:   w.Stolen,
		})
	}
}

func runStateFromModel(state models.RunState) RunState {
	switch state {
	case models.RunStateRunning:
		return RunStateRunning
	case models.RunStateCompleted:
		return RunStateCompleted
	case models.RunStateFailed:
		return RunStateFailed
	case models.RunStateCancelled:
		return RunStateCancelled
	default:
		return RunStatePending
	}
}

func taskStateFromModel(state models.TaskState) TaskState {
	switch state {
	case models.TaskStateRunning:
		return TaskStateRunning
	case models.TaskStateCompleted:
		return TaskStateCompleted
	case models.TaskStateFailed:
		return TaskStateFailed
	case models.TaskStateCancelled:
		return TaskStateCancelled
	default:
		return TaskStatePending
	}
}
