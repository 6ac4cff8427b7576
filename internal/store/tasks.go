package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/mgriffes/jobforge/internal/models"
)

// TaskStore persists per-task execution records.
type TaskStore struct {
	db QueryInterceptor
}

func NewTaskStore(db QueryInterceptor) *TaskStore {
	return &TaskStore{db: db}
}

// CreateBatch inserts one record per task, preserving slice order.
// ListByRun returns records in the same order.
func (s *TaskStore) CreateBatch(ctx context.Context, tasks []models.TaskRun) error {
	for i, t := range tasks {
		_, err := s.db.ExecContext(ctx, queryInsertTaskRun,
			t.RunID.String(), t.Name, i, string(t.State))
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *TaskStore) ListByRun(ctx context.Context, runID uuid.UUID) ([]models.TaskRun, error) {
	rows, err := s.db.QueryContext(ctx, queryListTaskRuns, runID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []models.TaskRun
	for rows.Next() {
		var (
			t          models.TaskRun
			id         string
			state      string
			startedAt  sql.NullTime
			finishedAt sql.NullTime
		)
		err := rows.Scan(&id, &t.Name, &state, &t.Output, &t.Error, &t.Worker, &startedAt, &finishedAt)
		if err != nil {
			return nil, err
		}
		t.RunID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		t.State = models.TaskState(state)
		if startedAt.Valid {
			at := startedAt.Time
			t.StartedAt = &at
		}
		if finishedAt.Valid {
			at := finishedAt.Time
			t.FinishedAt = &at
		}
		tasks = append(tasks, t)
	}

	return tasks, rows.Err()
}

// MarkRunning flips a task to running, recording the executing worker
// and started_at.
func (s *TaskStore) MarkRunning(ctx context.Context, runID uuid.UUID, name string, worker int) error {
	_, err := s.db.ExecContext(ctx, queryMarkTaskRunning, worker, runID.String(), name)
	return err
}

// Finish records a task's terminal state with its captured output and
// error text.
func (s *TaskStore) Finish(ctx context.Context, runID uuid.UUID, name string, state models.TaskState, output, errText string) error {
	_, err := s.db.ExecContext(ctx, queryFinishTaskRun,
		string(state), output, errText, runID.String(), name)
	return err
}
