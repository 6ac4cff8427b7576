package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/mgriffes/jobforge/pkg/scheduler"
)

func newBenchCmd() *cobra.Command {
	var jobs, workers int
	policy := &policyValue{policy: scheduler.IdleWait}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark the scheduler",
		Long: `bench floods the scheduler with trivial jobs and reports the
throughput and the per-worker execution spread.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if jobs < 1 {
				return fmt.Errorf("jobs must be positive, got %d", jobs)
			}
			if workers <= 0 {
				workers = scheduler.DefaultWorkerCount()
			}
			return runBench(cmd.Context(), jobs, workers, policy.policy)
		},
	}

	cmd.Flags().IntVar(&jobs, "jobs", 100000, "Number of jobs to submit")
	cmd.Flags().IntVar(&workers, "workers", 0, "Worker count (0 = one per CPU minus one)")
	cmd.Flags().Var(policy, "policy", "Idle policy (wait or spin)")
	return cmd
}

func runBench(ctx context.Context, jobs, workers int, idle scheduler.IdlePolicy) error {
	sched := scheduler.New(
		scheduler.WithIdlePolicy(idle),
		scheduler.WithOverflowCapacity(jobs),
	)
	if err := sched.Start(workers); err != nil {
		return err
	}

	noop := func(context.Context) (any, error) { return nil, nil }

	start := time.Now()
	handles := make([]*scheduler.Handle, 0, jobs)
	for i := 0; i < jobs; i++ {
		h, err := sched.Submit(ctx, noop)
		if err != nil {
			sched.Shutdown(false)
			return err
		}
		handles = append(handles, h)
	}

	failed := 0
	for _, err := range sched.WaitAll(ctx, handles...) {
		if err != nil {
			failed++
		}
	}
	elapsed := time.Since(start)
	sched.Shutdown(true)

	printBenchReport(sched.Stats(), jobs, failed, elapsed)
	return nil
}

func printBenchReport(stats scheduler.Stats, jobs, failed int, elapsed time.Duration) {
	fmt.Printf("Jobs:       %d\n", jobs)
	fmt.Printf("Workers:    %d\n", stats.Workers)
	fmt.Printf("Elapsed:    %s\n", elapsed.Round(time.Millisecond))
	color.New(color.FgGreen).Printf("Throughput: %.0f jobs/s\n", float64(jobs)/elapsed.Seconds())
	if failed > 0 {
		color.New(color.FgRed).Printf("Failed:     %d\n", failed)
	}

	fmt.Println("Per worker:")
	var minExec, maxExec uint64
	for i, w := range stats.PerWorker {
		if i == 0 || w.Executed < minExec {
			minExec = w.Executed
		}
		if w.Executed > maxExec {
			maxExec = w.Executed
		}
		fmt.Printf("  worker %-3d executed %-8d stolen %d\n", w.ID, w.Executed, w.Stolen)
	}
	fmt.Printf("Spread:     max-min = %d, total steals = %d\n", maxExec-minExec, stats.Stolen)
}
