package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mgriffes/jobforge/pkg/client"
)

func newSubmitCmd() *cobra.Command {
	var serverURL string

	cmd := &cobra.Command{
		Use:   "submit <pipeline.yaml>",
		Short: "Submit a pipeline to a running daemon",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			resp, err := client.New(serverURL).SubmitRun(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Printf("Run:      %s\n", resp.Id)
			fmt.Printf("Pipeline: %s\n", resp.Pipeline)
			fmt.Printf("State:    %s\n", resp.State)
			return nil
		},
	}

	cmd.Flags().StringVar(&serverURL, "server", defaultServer(), "Daemon base URL")
	return cmd
}
