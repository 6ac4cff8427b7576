package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mgriffes/jobforge/internal/models"
	"github.com/mgriffes/jobforge/internal/store"
	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
	"github.com/mgriffes/jobforge/pkg/pipeline"
	"github.com/mgriffes/jobforge/pkg/scheduler"
)

// Runner turns accepted pipelines into scheduler jobs and tracks every
// run to completion in the store.
type Runner struct {
	scheduler *scheduler.Scheduler
	store     *store.Store
	executor  Executor

	mu     sync.Mutex
	active map[uuid.UUID]*models.Run

	// wg counts the per-task watchers and per-run finalizers, so
	// Shutdown can wait until the last record is written.
	wg sync.WaitGroup
}

func NewRunner(s *scheduler.Scheduler, st *store.Store, exec Executor) *Runner {
	return &Runner{
		scheduler: s,
		store:     st,
		executor:  exec,
		active:    make(map[uuid.UUID]*models.Run),
	}
}

// taskOutput carries a task's captured output from the payload to its
// watcher. The payload writes it before the job completes; the watcher
// reads it after Wait returns, ordered by the handle's done channel.
type taskOutput struct {
	output string
}

// Submit validates p, records the run with one task row per pipeline
// task, and hands every task to the scheduler in topological order,
// wiring needs to prerequisite handles. It returns as soon as the jobs
// are queued; the run is then driven to a terminal state in the
// background.
//
// If the scheduler refuses a submission part-way (shutdown race), the
// already-queued tasks are still watched and the run resolves in the
// store; the scheduler's error is returned.
func (r *Runner) Submit(ctx context.Context, p *pipeline.Pipeline) (*models.Run, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	order, err := p.TopoOrder()
	if err != nil {
		return nil, err
	}

	run := models.Run{
		ID:        uuid.New(),
		Pipeline:  p.Name,
		State:     models.RunStatePending,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Runs().Create(ctx, &run); err != nil {
		return nil, err
	}

	tasks := make([]models.TaskRun, 0, len(order))
	for _, name := range order {
		tasks = append(tasks, models.TaskRun{
			RunID: run.ID,
			Name:  name,
			State: models.TaskStatePending,
		})
	}
	if err := r.store.Tasks().CreateBatch(ctx, tasks); err != nil {
		return nil, err
	}

	r.mu.Lock()
	entry := run
	r.active[run.ID] = &entry
	r.mu.Unlock()

	type submission struct {
		name   string
		handle *scheduler.Handle
		slot   *taskOutput
	}

	handles := make(map[string]*scheduler.Handle, len(order))
	var (
		subs      []submission
		submitErr error
	)
	for i, name := range order {
		task, _ := p.Lookup(name)
		prereqs := make([]*scheduler.Handle, 0, len(task.Needs))
		for _, need := range task.Needs {
			prereqs = append(prereqs, handles[need])
		}

		slot := &taskOutput{}
		h, err := r.scheduler.Submit(ctx, func(jobCtx context.Context) (any, error) {
			return r.runTask(jobCtx, run.ID, task, slot)
		}, prereqs...)
		if err != nil {
			submitErr = err
			// Tasks never handed to the scheduler are closed out here,
			// so the run still resolves over the watched subset.
			for _, rest := range order[i:] {
				ferr := r.store.Tasks().Finish(ctx, run.ID, rest,
					models.TaskStateCancelled, "", "not submitted: "+err.Error())
				if ferr != nil {
					zap.S().Named("runner").Errorw("record unsubmitted task",
						"run_id", run.ID, "task", rest, "error", ferr)
				}
			}
			break
		}
		handles[name] = h
		subs = append(subs, submission{name: name, handle: h, slot: slot})
	}

	watchers := &sync.WaitGroup{}
	for _, sub := range subs {
		watchers.Add(1)
		r.wg.Add(1)
		go r.watchTask(run.ID, sub.name, sub.handle, sub.slot, watchers)
	}
	r.wg.Add(1)
	go r.finalize(run.ID, p.Name, watchers)

	if submitErr != nil {
		return nil, submitErr
	}

	zap.S().Named("runner").Infow("run submitted",
		"run_id", run.ID, "pipeline", p.Name, "tasks", len(order))
	return &run, nil
}

// runTask is the scheduler payload for one task: it records the start,
// executes the command, and parks the captured output in slot for the
// watcher.
func (r *Runner) runTask(ctx context.Context, runID uuid.UUID, task *pipeline.Task, slot *taskOutput) (string, error) {
	worker := -1
	if id, ok := scheduler.WorkerID(ctx); ok {
		worker = id
	}

	r.markRunStarted(ctx, runID)
	if err := r.store.Tasks().MarkRunning(ctx, runID, task.Name, worker); err != nil {
		zap.S().Named("runner").Errorw("mark task running",
			"run_id", runID, "task", task.Name, "error", err)
	}
	zap.S().Named("runner").Debugw("task started",
		"run_id", runID, "task", task.Name, "worker", worker)

	output, err := r.executor.Run(ctx, task)
	slot.output = output
	return output, err
}

// markRunStarted flips the run to running on its first task start. The
// statement keeps the original started_at, so repeats are harmless.
func (r *Runner) markRunStarted(ctx context.Context, runID uuid.UUID) {
	r.mu.Lock()
	if entry, ok := r.active[runID]; ok && entry.State == models.RunStatePending {
		entry.State = models.RunStateRunning
	}
	r.mu.Unlock()

	if err := r.store.Runs().SetState(ctx, runID, models.RunStateRunning); err != nil {
		zap.S().Named("runner").Errorw("mark run running", "run_id", runID, "error", err)
	}
}

// watchTask blocks until the task's job is terminal and records the
// outcome. Completion and failure come from the payload; cancellation
// means the payload never ran.
func (r *Runner) watchTask(runID uuid.UUID, name string, h *scheduler.Handle, slot *taskOutput, watchers *sync.WaitGroup) {
	defer r.wg.Done()
	defer watchers.Done()

	ctx := context.Background()
	_, err := h.Wait(ctx)

	state := models.TaskStateCompleted
	var errText string
	switch {
	case err == nil:
	case srvErrors.IsJobCancelledError(err):
		state = models.TaskStateCancelled
		errText = err.Error()
	default:
		state = models.TaskStateFailed
		errText = err.Error()
		var pe *srvErrors.PayloadError
		if errors.As(err, &pe) {
			errText = pe.Cause.Error()
		}
	}

	if dbErr := r.store.Tasks().Finish(ctx, runID, name, state, slot.output, errText); dbErr != nil {
		zap.S().Named("runner").Errorw("record task result",
			"run_id", runID, "task", name, "error", dbErr)
	}
	zap.S().Named("runner").Debugw("task finished",
		"run_id", runID, "task", name, "state", state)
}

// finalize waits for every task watcher of a run, derives the run's
// terminal state from the task records, and closes the run out.
func (r *Runner) finalize(runID uuid.UUID, pipelineName string, watchers *sync.WaitGroup) {
	defer r.wg.Done()
	watchers.Wait()

	ctx := context.Background()
	state := models.RunStateFailed
	var errText string

	tasks, err := r.store.Tasks().ListByRun(ctx, runID)
	if err != nil {
		zap.S().Named("runner").Errorw("load task records", "run_id", runID, "error", err)
		errText = "task records unavailable: " + err.Error()
	} else {
		state = models.DeriveRunState(tasks)
		if !state.Terminal() {
			zap.S().Named("runner").DPanicw("run finalized with non-terminal task records",
				"run_id", runID)
			state = models.RunStateFailed
		}
		errText = runErrorText(tasks)
	}

	if err := r.store.Runs().Finish(ctx, runID, state, errText); err != nil {
		zap.S().Named("runner").Errorw("record run result", "run_id", runID, "error", err)
	}

	r.mu.Lock()
	delete(r.active, runID)
	r.mu.Unlock()

	zap.S().Named("runner").Infow("run finished",
		"run_id", runID, "pipeline", pipelineName, "state", state)
}

func runErrorText(tasks []models.TaskRun) string {
	var failed []string
	cancelled := false
	for _, t := range tasks {
		switch t.State {
		case models.TaskStateFailed:
			failed = append(failed, t.Name)
		case models.TaskStateCancelled:
			cancelled = true
		}
	}
	if len(failed) > 0 {
		sort.Strings(failed)
		return "failed tasks: " + strings.Join(failed, ", ")
	}
	if cancelled {
		return "cancelled before all tasks could run"
	}
	return ""
}

// Get returns one run with its task records.
func (r *Runner) Get(ctx context.Context, id uuid.UUID) (*models.Run, []models.TaskRun, error) {
	run, err := r.store.Runs().Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	tasks, err := r.store.Tasks().ListByRun(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return run, tasks, nil
}

type RunListParams struct {
	States    []string
	Pipelines []string
	Limit     uint64
	Offset    uint64
}

type RunListResult struct {
	Runs  []models.Run
	Total int
}

func (r *Runner) List(ctx context.Context, params RunListParams) (*RunListResult, error) {
	opts := r.buildListOptions(params)
	opts = append(opts, store.WithDefaultSort())

	runs, err := r.store.Runs().List(ctx, opts...)
	if err != nil {
		return nil, err
	}

	// Get total count without pagination
	countOpts := r.buildListOptions(RunListParams{
		States:    params.States,
		Pipelines: params.Pipelines,
	})
	total, err := r.store.Runs().Count(ctx, countOpts...)
	if err != nil {
		return nil, err
	}

	return &RunListResult{
		Runs:  runs,
		Total: total,
	}, nil
}

func (r *Runner) buildListOptions(params RunListParams) []store.ListOption {
	var opts []store.ListOption

	if len(params.States) > 0 {
		opts = append(opts, store.ByStates(params.States...))
	}
	if len(params.Pipelines) > 0 {
		opts = append(opts, store.ByPipeline(params.Pipelines...))
	}
	if params.Limit > 0 {
		opts = append(opts, store.WithLimit(params.Limit))
	}
	if params.Offset > 0 {
		opts = append(opts, store.WithOffset(params.Offset))
	}

	return opts
}

// Stats returns the scheduler's counters snapshot.
func (r *Runner) Stats() scheduler.Stats {
	return r.scheduler.Stats()
}

// ActiveRuns returns the runs not yet terminal, newest first.
func (r *Runner) ActiveRuns() []models.Run {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs := make([]models.Run, 0, len(r.active))
	for _, run := range r.active {
		runs = append(runs, *run)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID.String() < runs[j].ID.String()
	})
	return runs
}

// Shutdown stops the scheduler, draining outstanding jobs when drain is
// true and sweeping them when false, then waits until every in-flight
// run has been recorded.
func (r *Runner) Shutdown(drain bool) {
	r.scheduler.Shutdown(drain)
	r.wg.Wait()
}
