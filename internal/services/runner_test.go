package services_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/mgriffes/jobforge/internal/models"
	"github.com/mgriffes/jobforge/internal/services"
	"github.com/mgriffes/jobforge/internal/store"
	"github.com/mgriffes/jobforge/internal/store/migrations"
	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
	"github.com/mgriffes/jobforge/pkg/pipeline"
	"github.com/mgriffes/jobforge/pkg/scheduler"
	"github.com/mgriffes/jobforge/test"
)

var _ = Describe("Runner", func() {
	var (
		ctx    context.Context
		db     *sql.DB
		st     *store.Store
		sched  *scheduler.Scheduler
		runner *services.Runner
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		db, err = store.NewDB(":memory:")
		Expect(err).NotTo(HaveOccurred())

		err = migrations.Run(ctx, db)
		Expect(err).NotTo(HaveOccurred())

		st = store.NewStore(db)
	})

	AfterEach(func() {
		if runner != nil {
			runner.Shutdown(false)
			runner = nil
		}
		if db != nil {
			db.Close()
		}
	})

	startRunner := func(workers int, exec services.Executor, opts ...scheduler.Option) {
		sched = scheduler.New(opts...)
		Expect(sched.Start(workers)).To(Succeed())
		runner = services.NewRunner(sched, st, exec)
	}

	parsePipeline := func(yamlText string) *pipeline.Pipeline {
		p, err := pipeline.Parse([]byte(yamlText))
		Expect(err).NotTo(HaveOccurred())
		return p
	}

	okExecutor := test.NewMockExecutor()

	// Given a pipeline with a dependency chain
	// When it is submitted and drained
	// Then every task should be recorded completed in dependency order
	It("should run a pipeline to completion and record every task", func() {
		// Arrange
		var mu sync.Mutex
		var execOrder []string
		startRunner(4, &test.MockExecutor{RunFn: func(_ context.Context, task *pipeline.Task) (string, error) {
			mu.Lock()
			execOrder = append(execOrder, task.Name)
			mu.Unlock()
			return "ran " + task.Name, nil
		}})
		p := parsePipeline(`
name: release
tasks:
  - name: build
    run: make build
    needs: [fetch]
  - name: fetch
    run: git fetch
  - name: test
    run: make test
    needs: [build]
`)

		// Act
		run, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		runner.Shutdown(true)

		// Assert
		stored, tasks, err := runner.Get(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.State).To(Equal(models.RunStateCompleted))
		Expect(stored.Error).To(BeEmpty())
		Expect(stored.StartedAt).NotTo(BeNil())
		Expect(stored.FinishedAt).NotTo(BeNil())

		Expect(tasks).To(HaveLen(3))
		Expect(tasks[0].Name).To(Equal("fetch"))
		Expect(tasks[1].Name).To(Equal("build"))
		Expect(tasks[2].Name).To(Equal("test"))
		for _, t := range tasks {
			Expect(t.State).To(Equal(models.TaskStateCompleted))
			Expect(t.Output).To(Equal("ran " + t.Name))
			Expect(t.Worker).To(BeNumerically(">=", 0))
			Expect(t.StartedAt).NotTo(BeNil())
			Expect(t.FinishedAt).NotTo(BeNil())
		}

		index := func(name string) int {
			for i, n := range execOrder {
				if n == name {
					return i
				}
			}
			return -1
		}
		Expect(index("fetch")).To(BeNumerically("<", index("build")))
		Expect(index("build")).To(BeNumerically("<", index("test")))
	})

	// Given a task whose command fails
	// When the run finishes
	// Then the run should be failed while independent tasks complete
	It("should record a failed task and fail the run", func() {
		// Arrange
		startRunner(4, &test.MockExecutor{RunFn: func(_ context.Context, task *pipeline.Task) (string, error) {
			if task.Name == "build" {
				return "compile log", errors.New("exit status 2")
			}
			return "ran " + task.Name, nil
		}})
		p := parsePipeline(`
name: ci
tasks:
  - name: fetch
    run: ./fetch.sh
  - name: build
    run: ./build.sh
    needs: [fetch]
  - name: docs
    run: ./docs.sh
`)

		// Act
		run, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		runner.Shutdown(true)

		// Assert
		stored, tasks, err := runner.Get(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.State).To(Equal(models.RunStateFailed))
		Expect(stored.Error).To(Equal("failed tasks: build"))

		byName := map[string]models.TaskRun{}
		for _, t := range tasks {
			byName[t.Name] = t
		}
		Expect(byName["build"].State).To(Equal(models.TaskStateFailed))
		Expect(byName["build"].Output).To(Equal("compile log"))
		Expect(byName["build"].Error).To(Equal("exit status 2"))
		Expect(byName["fetch"].State).To(Equal(models.TaskStateCompleted))
		Expect(byName["docs"].State).To(Equal(models.TaskStateCompleted))
	})

	// Given a scheduler in cancel-on-failure mode
	// When an upstream task fails
	// Then its dependents should be recorded cancelled and never execute
	It("should record cascaded cancellations in cancel-on-failure mode", func() {
		// Arrange
		var mu sync.Mutex
		ran := map[string]bool{}
		startRunner(2, &test.MockExecutor{RunFn: func(_ context.Context, task *pipeline.Task) (string, error) {
			mu.Lock()
			ran[task.Name] = true
			mu.Unlock()
			if task.Name == "a" {
				return "", errors.New("boom")
			}
			return "ok", nil
		}}, scheduler.WithCancelOnFailure())
		p := parsePipeline(`
name: chain
tasks:
  - name: a
    run: ./a.sh
  - name: b
    run: ./b.sh
    needs: [a]
  - name: c
    run: ./c.sh
    needs: [b]
`)

		// Act
		run, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		runner.Shutdown(true)

		// Assert
		stored, tasks, err := runner.Get(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.State).To(Equal(models.RunStateFailed))
		Expect(stored.Error).To(Equal("failed tasks: a"))

		byName := map[string]models.TaskRun{}
		for _, t := range tasks {
			byName[t.Name] = t
		}
		Expect(byName["a"].State).To(Equal(models.TaskStateFailed))
		Expect(byName["b"].State).To(Equal(models.TaskStateCancelled))
		Expect(byName["c"].State).To(Equal(models.TaskStateCancelled))
		Expect(byName["b"].Worker).To(Equal(-1))
		Expect(byName["c"].Worker).To(Equal(-1))

		mu.Lock()
		defer mu.Unlock()
		Expect(ran["b"]).To(BeFalse())
		Expect(ran["c"]).To(BeFalse())
	})

	// Given a pipeline with a dependency cycle
	// When it is submitted
	// Then it should be rejected before anything is persisted
	It("should reject an invalid pipeline without persisting a run", func() {
		// Arrange
		startRunner(2, okExecutor)
		p := parsePipeline(`
name: cyclic
tasks:
  - name: a
    run: ./a.sh
    needs: [b]
  - name: b
    run: ./b.sh
    needs: [a]
`)

		// Act
		_, err := runner.Submit(ctx, p)

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsValidationError(err)).To(BeTrue())

		total, err := st.Runs().Count(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(BeZero())
	})

	// Given a run with a long-running task
	// When we inspect the in-flight table
	// Then the run should appear running until it finishes
	It("should report active runs until they finish", func() {
		// Arrange
		gate := make(chan struct{})
		startRunner(2, &test.MockExecutor{RunFn: func(ctx context.Context, task *pipeline.Task) (string, error) {
			select {
			case <-gate:
				return "ok", nil
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}})
		p := parsePipeline(`
name: slow
tasks:
  - name: work
    run: ./work.sh
`)

		// Act
		run, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())

		// Assert
		Eventually(func() models.RunState {
			active := runner.ActiveRuns()
			if len(active) != 1 {
				return ""
			}
			return active[0].State
		}, 5*time.Second).Should(Equal(models.RunStateRunning))

		close(gate)
		Eventually(runner.ActiveRuns, 5*time.Second).Should(BeEmpty())

		stored, _, err := runner.Get(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.State).To(Equal(models.RunStateCompleted))
	})

	// Given one worker busy on a blocking task with more tasks queued
	// When the runner shuts down without draining
	// Then queued tasks should resolve cancelled and the blocked task fail
	It("should record queued tasks as cancelled on a non-draining shutdown", func() {
		// Arrange
		gate := make(chan struct{})
		defer close(gate)
		startRunner(1, &test.MockExecutor{RunFn: func(ctx context.Context, task *pipeline.Task) (string, error) {
			if task.Name == "a" {
				select {
				case <-gate:
					return "ok", nil
				case <-ctx.Done():
					return "", ctx.Err()
				}
			}
			return "ok", nil
		}})
		p := parsePipeline(`
name: swept
tasks:
  - name: a
    run: ./a.sh
  - name: b
    run: ./b.sh
  - name: c
    run: ./c.sh
`)

		run, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())

		Eventually(func() models.TaskState {
			_, tasks, err := runner.Get(ctx, run.ID)
			Expect(err).NotTo(HaveOccurred())
			return tasks[0].State
		}, 5*time.Second).Should(Equal(models.TaskStateRunning))

		// Act
		done := make(chan struct{})
		go func() {
			runner.Shutdown(false)
			close(done)
		}()
		Eventually(done, 5*time.Second).Should(BeClosed())

		// Assert
		stored, tasks, err := runner.Get(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.State).To(Equal(models.RunStateFailed))
		Expect(stored.Error).To(Equal("failed tasks: a"))

		byName := map[string]models.TaskRun{}
		for _, t := range tasks {
			byName[t.Name] = t
		}
		Expect(byName["a"].State).To(Equal(models.TaskStateFailed))
		Expect(byName["a"].Error).To(Equal("context canceled"))
		Expect(byName["b"].State).To(Equal(models.TaskStateCancelled))
		Expect(byName["c"].State).To(Equal(models.TaskStateCancelled))
	})

	// Given outstanding quick tasks
	// When the runner shuts down draining
	// Then every task should complete and the run be recorded before return
	It("should finish outstanding work on a draining shutdown", func() {
		// Arrange
		startRunner(2, okExecutor)
		p := parsePipeline(`
name: drained
tasks:
  - name: one
    run: ./one.sh
  - name: two
    run: ./two.sh
  - name: three
    run: ./three.sh
  - name: four
    run: ./four.sh
  - name: five
    run: ./five.sh
`)
		run, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())

		// Act
		runner.Shutdown(true)

		// Assert
		stored, tasks, err := runner.Get(ctx, run.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(stored.State).To(Equal(models.RunStateCompleted))
		Expect(tasks).To(HaveLen(5))
		for _, t := range tasks {
			Expect(t.State).To(Equal(models.TaskStateCompleted))
		}
	})

	// Given a runner whose scheduler has shut down
	// When a pipeline is submitted
	// Then the submission should fail and the orphaned run resolve cancelled
	It("should resolve a run whose submission raced shutdown", func() {
		// Arrange
		startRunner(2, okExecutor)
		runner.Shutdown(true)
		p := parsePipeline(`
name: late
tasks:
  - name: solo
    run: ./solo.sh
`)

		// Act
		_, err := runner.Submit(ctx, p)

		// Assert
		Expect(err).To(HaveOccurred())
		Expect(srvErrors.IsSchedulerClosedError(err)).To(BeTrue())

		// The finalizer still closes out the stored run.
		runner.Shutdown(false)
		result, err := runner.List(ctx, services.RunListParams{States: []string{"cancelled"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Total).To(Equal(1))
		Expect(result.Runs[0].Pipeline).To(Equal("late"))
	})

	// Given recorded runs of several pipelines
	// When we list with filters and pagination
	// Then results and totals should honor them
	It("should list runs with filters and pagination", func() {
		// Arrange
		startRunner(2, okExecutor)
		alpha := `
name: alpha
tasks:
  - name: solo
    run: ./solo.sh
`
		beta := `
name: beta
tasks:
  - name: solo
    run: ./solo.sh
`
		for _, y := range []string{alpha, beta, alpha} {
			_, err := runner.Submit(ctx, parsePipeline(y))
			Expect(err).NotTo(HaveOccurred())
		}
		runner.Shutdown(true)

		// Act & Assert
		result, err := runner.List(ctx, services.RunListParams{Pipelines: []string{"alpha"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Total).To(Equal(2))
		Expect(result.Runs).To(HaveLen(2))

		result, err = runner.List(ctx, services.RunListParams{Limit: 2})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Total).To(Equal(3))
		Expect(result.Runs).To(HaveLen(2))

		result, err = runner.List(ctx, services.RunListParams{States: []string{"completed"}})
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Total).To(Equal(3))
	})

	// Given completed work
	// When we read scheduler stats through the runner
	// Then submitted and completed totals should match the tasks
	It("should expose scheduler stats", func() {
		// Arrange
		startRunner(2, okExecutor)
		p := parsePipeline(`
name: counted
tasks:
  - name: one
    run: ./one.sh
  - name: two
    run: ./two.sh
`)
		_, err := runner.Submit(ctx, p)
		Expect(err).NotTo(HaveOccurred())
		runner.Shutdown(true)

		// Act
		stats := runner.Stats()

		// Assert
		Expect(stats.Submitted).To(Equal(uint64(2)))
		Expect(stats.Completed).To(Equal(uint64(2)))
		Expect(stats.Workers).To(Equal(2))
	})
})
