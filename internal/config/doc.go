// Package config defines the configuration structure for the jobforge
// daemon.
//
// Configuration is organized into logical sections (Scheduler, Server,
// Store) plus top-level logging settings. Defaults come from struct
// tags (creasty/defaults); file and environment values are read with
// viper and override them.
//
// # Configuration Structure
//
//	Configuration
//	├── Scheduler      - Worker pool settings
//	├── Server         - HTTP server settings
//	├── Store          - Run-history persistence
//	├── LogLevel       - Logging verbosity
//	└── LogFormat      - Logging format
//
// # Scheduler Configuration
//
//	┌───────────────────┬─────────┬────────────────────────────────────────┐
//	│ Field             │ Default │ Description                            │
//	├───────────────────┼─────────┼────────────────────────────────────────┤
//	│ Workers           │ 0       │ Worker count (0 = CPUs minus one)      │
//	│ OverflowCapacity  │ 64      │ Initial overflow queue capacity        │
//	│ IdlePolicy        │ "wait"  │ Idle worker policy: "wait" or "spin"   │
//	│ CancelOnFailure   │ false   │ Cancel dependents of failed tasks      │
//	└───────────────────┴─────────┴────────────────────────────────────────┘
//
// Idle policies:
//   - wait: idle workers park until new work arrives
//   - spin: idle workers make a few rescan passes before parking
//
// # Server Configuration
//
//	┌──────────┬─────────┬────────────────────────────────────────┐
//	│ Field    │ Default │ Description                            │
//	├──────────┼─────────┼────────────────────────────────────────┤
//	│ Mode     │ "dev"   │ Server mode: "prod" or "dev"           │
//	│ HTTPPort │ 8099    │ HTTP server listen port                │
//	└──────────┴─────────┴────────────────────────────────────────┘
//
// # Store Configuration
//
//	┌────────────┬────────────┬───────────────────────────────────────────┐
//	│ Field      │ Default    │ Description                               │
//	├────────────┼────────────┼───────────────────────────────────────────┤
//	│ DataFolder │ ".jobforge"│ DuckDB folder; ":memory:" for no file     │
//	└────────────┴────────────┴───────────────────────────────────────────┘
//
// # Sources and Precedence
//
// Load(path) merges three sources, later ones winning:
//
//  1. Struct-tag defaults
//  2. The YAML config file at path (optional)
//  3. JOBFORGE_* environment variables
//
// Environment variable names follow the key path with underscores:
//
//	JOBFORGE_SCHEDULER_WORKERS=8
//	JOBFORGE_SERVER_HTTP_PORT=9000
//	JOBFORGE_STORE_DATA_FOLDER=/var/lib/jobforge
//	JOBFORGE_LOG_LEVEL=debug
//
// # Logging
//
// BuildLogger(cfg) creates the zap logger and installs it globally.
// LogFormat "console" builds a development logger (human-readable
// output, DPanic aborts); "json" builds a production logger
// (structured output, DPanic logs and continues).
//
// # Usage Example
//
//	cfg, err := config.Load("/etc/jobforge/config.yaml")
//	if err != nil {
//	    return err
//	}
//	logger, err := config.BuildLogger(cfg)
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
//	sched := scheduler.New(cfg.SchedulerOptions()...)
//	if err := sched.Start(cfg.WorkerCount()); err != nil {
//	    return err
//	}
package config
