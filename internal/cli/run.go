package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mgriffes/jobforge/internal/models"
	"github.com/mgriffes/jobforge/internal/services"
	"github.com/mgriffes/jobforge/internal/store"
	"github.com/mgriffes/jobforge/internal/store/migrations"
	"github.com/mgriffes/jobforge/pkg/pipeline"
	"github.com/mgriffes/jobforge/pkg/scheduler"
)

func newRunCmd() *cobra.Command {
	var workers int
	var showOutput bool

	cmd := &cobra.Command{
		Use:   "run <pipeline.yaml>",
		Short: "Run a pipeline locally",
		Long: `run executes a pipeline in this process with an in-memory run
history and prints a task report. The exit code is non-zero unless
every task completes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := pipeline.Load(args[0])
			if err != nil {
				return err
			}
			return runLocal(cmd.Context(), p, workers, showOutput)
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 0, "Worker count (0 = one per CPU minus one)")
	cmd.Flags().BoolVar(&showOutput, "show-output", false, "Print each task's captured output")
	return cmd
}

func runLocal(parent context.Context, p *pipeline.Pipeline, workers int, showOutput bool) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.NewDB(":memory:")
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()
	if err := migrations.Run(ctx, db); err != nil {
		return err
	}

	if workers <= 0 {
		workers = scheduler.DefaultWorkerCount()
	}
	sched := scheduler.New()
	if err := sched.Start(workers); err != nil {
		return err
	}
	runner := services.NewRunner(sched, store.NewStore(db), services.ShellExecutor{})

	run, err := runner.Submit(ctx, p)
	if err != nil {
		runner.Shutdown(false)
		return err
	}

	// An interrupt sweeps the not-yet-running tasks; the drain below
	// then returns once the in-flight ones have finished.
	interrupted := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			fmt.Println("interrupted, cancelling queued tasks...")
			runner.Shutdown(false)
		case <-interrupted:
		}
	}()

	runner.Shutdown(true)
	close(interrupted)

	finished, tasks, err := runner.Get(context.Background(), run.ID)
	if err != nil {
		return err
	}

	printRunReport(finished, tasks, showOutput)

	if finished.State != models.RunStateCompleted {
		return fmt.Errorf("run %s", finished.State)
	}
	return nil
}

func printRunReport(run *models.Run, tasks []models.TaskRun, showOutput bool) {
	fmt.Printf("Pipeline: %s\n", run.Pipeline)
	fmt.Printf("State:    %s\n", stateColor(string(run.State)).Sprint(run.State))
	if run.Error != "" {
		color.New(color.FgRed).Printf("Error:    %s\n", run.Error)
	}

	fmt.Println("Tasks:")
	for _, t := range tasks {
		fmt.Printf("  %-20s %-10s %8s",
			t.Name,
			stateColor(string(t.State)).Sprint(t.State),
			formatSpan(t.StartedAt, t.FinishedAt),
		)
		if t.Worker >= 0 {
			fmt.Printf("  worker %d", t.Worker)
		}
		fmt.Println()

		if t.Error != "" {
			color.New(color.FgRed).Printf("      %s\n", t.Error)
		}
		if showOutput && t.Output != "" {
			fmt.Print(indent(t.Output, "      "))
		}
	}
}
