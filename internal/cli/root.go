// Package cli implements the jobforge command tree.
package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/mgriffes/jobforge/internal/config"
)

var flagVerbose bool

// defaultServer returns the default daemon URL, checking the
// JOBFORGE_SERVER env var first.
func defaultServer() string {
	if s := os.Getenv("JOBFORGE_SERVER"); s != "" {
		return s
	}
	return "http://localhost:8099"
}

// initLogging installs a console logger for the local commands. The
// serve command replaces it with the configured logger once the
// configuration is loaded.
func initLogging() {
	level := "warn"
	if flagVerbose {
		level = "debug"
	}
	_, _ = config.BuildLogger(&config.Configuration{
		LogLevel:  level,
		LogFormat: "console",
	})
}

// NewRootCmd creates the root cobra command for the jobforge CLI.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "jobforge",
		Short: "jobforge - work-stealing pipeline runner",
		Long: `jobforge runs task pipelines on a work-stealing scheduler.

Pipelines are YAML files declaring named shell tasks with dependencies
between them. Run them locally, serve them as a daemon with an HTTP
API and run history, or talk to a remote daemon.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			initLogging()
		},
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		newServeCmd(),
		newRunCmd(),
		newBenchCmd(),
		newSubmitCmd(),
		newStatusCmd(),
	)

	return root
}
