package cli

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	v1 "github.com/mgriffes/jobforge/api/v1"
	"github.com/mgriffes/jobforge/pkg/client"
)

func newStatusCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "status <run-id>",
		Short: "Show the state of a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			run, err := client.New(serverURL).GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printRunStatus(run)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer(), "Daemon base URL")
	return cmd
}

func printRunStatus(run *v1.Run) {
	fmt.Printf("Run:      %s\n", run.Id)
	fmt.Printf("Pipeline: %s\n", run.Pipeline)
	fmt.Printf("State:    %s\n", stateColor(string(run.State)).Sprint(run.State))
	fmt.Printf("Created:  %s\n", run.CreatedAt.Format(time.RFC3339))
	if run.StartedAt != nil {
		fmt.Printf("Started:  %s\n", run.StartedAt.Format(time.RFC3339))
	}
	if run.FinishedAt != nil {
		fmt.Printf("Finished: %s\n", run.FinishedAt.Format(time.RFC3339))
	}
	if run.Error != nil {
		color.New(color.FgRed).Printf("Error:    %s\n", *run.Error)
	}

	if len(run.Tasks) == 0 {
		return
	}
	fmt.Println("Tasks:")
	for _, task := range run.Tasks {
		line := fmt.Sprintf("  %-20s %-10s %8s",
			task.Name,
			stateColor(string(task.State)).Sprint(task.State),
			formatSpan(task.StartedAt, task.FinishedAt))
		if task.Worker != nil {
			line += fmt.Sprintf("  worker %d", *task.Worker)
		}
		fmt.Println(line)
		if task.Error != nil {
			color.New(color.FgRed).Printf("    error: %s\n", *task.Error)
		}
	}
}
