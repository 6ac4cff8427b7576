// jobforge schedules and executes task pipelines, either locally or
// through a long-running daemon.
package main

import (
	"os"

	"github.com/mgriffes/jobforge/internal/cli"
)

func main() {
	if err := cli.NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
