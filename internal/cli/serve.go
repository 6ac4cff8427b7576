package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mgriffes/jobforge/internal/config"
	"github.com/mgriffes/jobforge/internal/handlers"
	"github.com/mgriffes/jobforge/internal/server"
	"github.com/mgriffes/jobforge/internal/services"
	"github.com/mgriffes/jobforge/internal/store"
	"github.com/mgriffes/jobforge/internal/store/migrations"
	"github.com/mgriffes/jobforge/pkg/scheduler"
)

const stopTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var configPath string
	var drain bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the jobforge daemon",
		Long: `serve starts the scheduler, opens the run-history database, and
exposes the HTTP API. SIGINT or SIGTERM shuts it down gracefully.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := config.BuildLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runServer(ctx, cfg, drain)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to the configuration file")
	cmd.Flags().BoolVar(&drain, "drain", true, "Finish outstanding tasks on shutdown instead of cancelling them")
	return cmd
}

func runServer(ctx context.Context, cfg *config.Configuration, drain bool) error {
	log := zap.S().Named("serve")

	db, err := store.NewDB(cfg.Store.DataFolder)
	if err != nil {
		return err
	}
	if err := migrations.Run(ctx, db); err != nil {
		return err
	}
	st := store.NewStore(db)
	defer func() { _ = st.Close() }()

	sched := scheduler.New(cfg.SchedulerOptions()...)
	if err := sched.Start(cfg.WorkerCount()); err != nil {
		return err
	}

	runner := services.NewRunner(sched, st, services.ShellExecutor{})

	srv, err := server.NewServer(cfg, handlers.New(runner).RegisterRoutes)
	if err != nil {
		runner.Shutdown(false)
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Infow("shutdown signal received", "drain", drain)
	case err := <-serveErr:
		runner.Shutdown(false)
		return err
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := srv.Stop(stopCtx); err != nil {
		log.Errorw("http server shutdown failed", "error", err)
	}

	runner.Shutdown(drain)
	log.Infow("daemon stopped")
	return nil
}
