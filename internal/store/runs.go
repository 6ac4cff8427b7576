package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/mgriffes/jobforge/internal/models"
	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
)

// RunStore persists pipeline runs.
type RunStore struct {
	db QueryInterceptor
}

func NewRunStore(db QueryInterceptor) *RunStore {
	return &RunStore{db: db}
}

// Create inserts a new run record.
func (s *RunStore) Create(ctx context.Context, run *models.Run) error {
	_, err := s.db.ExecContext(ctx, queryInsertRun,
		run.ID.String(), run.Pipeline, string(run.State), run.Error, run.CreatedAt)
	return err
}

// Get retrieves one run by id.
func (s *RunStore) Get(ctx context.Context, id uuid.UUID) (*models.Run, error) {
	row := s.db.QueryRowContext(ctx, queryGetRun, id.String())

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, srvErrors.NewRunNotFoundError(id.String())
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

func (s *RunStore) List(ctx context.Context, opts ...ListOption) ([]models.Run, error) {
	builder := sq.Select("id", "pipeline", "state", "error", "created_at", "started_at", "finished_at").
		From("runs")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

func (s *RunStore) Count(ctx context.Context, opts ...ListOption) (int, error) {
	builder := sq.Select("COUNT(*)").From("runs")

	for _, opt := range opts {
		builder = opt(builder)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, err
	}

	var count int
	err = s.db.QueryRowContext(ctx, query, args...).Scan(&count)
	return count, err
}

// SetState moves a run to state. Entering running also stamps
// started_at, first transition wins.
func (s *RunStore) SetState(ctx context.Context, id uuid.UUID, state models.RunState) error {
	if state == models.RunStateRunning {
		_, err := s.db.ExecContext(ctx, queryMarkRunStarted, string(state), id.String())
		return err
	}
	_, err := s.db.ExecContext(ctx, querySetRunState, string(state), id.String())
	return err
}

// Finish records the terminal state and error text and stamps
// finished_at. A run cancelled before any task started keeps a NULL
// started_at.
func (s *RunStore) Finish(ctx context.Context, id uuid.UUID, state models.RunState, errText string) error {
	_, err := s.db.ExecContext(ctx, queryFinishRun, string(state), errText, id.String())
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var (
		id         string
		pipeline   string
		state      string
		errText    string
		createdAt  time.Time
		startedAt  sql.NullTime
		finishedAt sql.NullTime
	)
	if err := row.Scan(&id, &pipeline, &state, &errText, &createdAt, &startedAt, &finishedAt); err != nil {
		return nil, err
	}

	runID, err := uuid.Parse(id)
	if err != nil {
		return nil, err
	}

	run := &models.Run{
		ID:        runID,
		Pipeline:  pipeline,
		State:     models.RunState(state),
		Error:     errText,
		CreatedAt: createdAt,
	}
	if startedAt.Valid {
		t := startedAt.Time
		run.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		run.FinishedAt = &t
	}
	return run, nil
}

type ListOption func(sq.SelectBuilder) sq.SelectBuilder

func ByStates(states ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(states) == 0 {
			return b
		}
		return b.Where(sq.Eq{"state": states})
	}
}

func ByPipeline(names ...string) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		if len(names) == 0 {
			return b
		}
		return b.Where(sq.Eq{"pipeline": names})
	}
}

func WithLimit(limit uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Limit(limit)
	}
}

func WithOffset(offset uint64) ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.Offset(offset)
	}
}

// WithDefaultSort orders newest first, run id as tie-breaker.
func WithDefaultSort() ListOption {
	return func(b sq.SelectBuilder) sq.SelectBuilder {
		return b.OrderBy("created_at DESC", "id")
	}
}
