package config

import (
	"fmt"
	"strings"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	srvErrors "github.com/mgriffes/jobforge/pkg/errors"
	"github.com/mgriffes/jobforge/pkg/scheduler"
)

const (
	ModeDev  = "dev"
	ModeProd = "prod"
)

// Configuration is the full daemon configuration.
type Configuration struct {
	Scheduler Scheduler `mapstructure:"scheduler"`
	Server    Server    `mapstructure:"server"`
	Store     Store     `mapstructure:"store"`
	LogLevel  string    `mapstructure:"log_level" default:"info"`
	LogFormat string    `mapstructure:"log_format" default:"console"`
}

// Scheduler configures the worker pool.
type Scheduler struct {
	// Workers is the worker count; zero means one worker per CPU
	// minus one.
	Workers          int    `mapstructure:"workers" default:"0"`
	OverflowCapacity int    `mapstructure:"overflow_capacity" default:"64"`
	IdlePolicy       string `mapstructure:"idle_policy" default:"wait"`
	CancelOnFailure  bool   `mapstructure:"cancel_on_failure" default:"false"`
}

// Server configures the HTTP API.
type Server struct {
	Mode     string `mapstructure:"mode" default:"dev"`
	HTTPPort int    `mapstructure:"http_port" default:"8099"`
}

// Store configures run-history persistence.
type Store struct {
	// DataFolder holds the DuckDB database file; ":memory:" keeps the
	// history in process memory.
	DataFolder string `mapstructure:"data_folder" default:".jobforge"`
}

// configKeys enumerates every viper key so environment overrides
// (JOBFORGE_SCHEDULER_WORKERS and friends) resolve without a config
// file.
var configKeys = []string{
	"scheduler.workers",
	"scheduler.overflow_capacity",
	"scheduler.idle_policy",
	"scheduler.cancel_on_failure",
	"server.mode",
	"server.http_port",
	"store.data_folder",
	"log_level",
	"log_format",
}

// Load builds the configuration from defaults, the optional config
// file at path, and JOBFORGE_* environment variables, in increasing
// precedence.
func Load(path string) (*Configuration, error) {
	cfg := &Configuration{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply configuration defaults: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix("JOBFORGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("bind environment for %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no component could run with.
func (c *Configuration) Validate() error {
	if c.Server.Mode != ModeDev && c.Server.Mode != ModeProd {
		return srvErrors.NewConfigurationError("invalid server mode: %s", c.Server.Mode)
	}
	if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
		return srvErrors.NewConfigurationError("invalid http port: %d", c.Server.HTTPPort)
	}
	if c.Scheduler.Workers < 0 {
		return srvErrors.NewConfigurationError("invalid worker count: %d", c.Scheduler.Workers)
	}
	if c.Scheduler.OverflowCapacity < 0 {
		return srvErrors.NewConfigurationError("invalid overflow capacity: %d", c.Scheduler.OverflowCapacity)
	}
	if _, err := scheduler.ParseIdlePolicy(c.Scheduler.IdlePolicy); err != nil {
		return srvErrors.NewConfigurationError("%v", err)
	}
	if c.Store.DataFolder == "" {
		return srvErrors.NewConfigurationError("store data folder is required")
	}
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return srvErrors.NewConfigurationError("invalid log level: %s", c.LogLevel)
	}
	if c.LogFormat != "json" && c.LogFormat != "console" {
		return srvErrors.NewConfigurationError("invalid log format: %s", c.LogFormat)
	}
	return nil
}

// SchedulerOptions maps the scheduler section to scheduler options.
// Validate must have accepted the configuration first.
func (c *Configuration) SchedulerOptions() []scheduler.Option {
	policy, _ := scheduler.ParseIdlePolicy(c.Scheduler.IdlePolicy)

	opts := []scheduler.Option{
		scheduler.WithIdlePolicy(policy),
	}
	if c.Scheduler.OverflowCapacity > 0 {
		opts = append(opts, scheduler.WithOverflowCapacity(c.Scheduler.OverflowCapacity))
	}
	if c.Scheduler.CancelOnFailure {
		opts = append(opts, scheduler.WithCancelOnFailure())
	}
	return opts
}

// WorkerCount resolves the configured worker count, falling back to
// the scheduler default when unset.
func (c *Configuration) WorkerCount() int {
	if c.Scheduler.Workers > 0 {
		return c.Scheduler.Workers
	}
	return scheduler.DefaultWorkerCount()
}
