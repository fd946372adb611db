package config

import "time"

// Config represents the taskexec configuration file structure
type Config struct {
	// Defaults apply to every pool field left unset
	Defaults PoolConfig `mapstructure:"defaults" yaml:"defaults,omitempty"`

	// Pools is a map of pool names to their configurations
	Pools map[string]PoolConfig `mapstructure:"pools" yaml:"pools,omitempty"`

	// Scheduler configures the time-based scheduler
	Scheduler SchedulerConfig `mapstructure:"scheduler" yaml:"scheduler,omitempty"`

	// Metrics configures Prometheus instrumentation
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics,omitempty"`

	// Log configures the logger
	Log LogConfig `mapstructure:"log" yaml:"log,omitempty"`
}

// PoolConfig represents configuration for a single worker pool
type PoolConfig struct {
	// MaxWorkers is the maximum number of live workers
	MaxWorkers int `mapstructure:"maxWorkers" yaml:"maxWorkers,omitempty"`

	// MaxQueueSize is the queue capacity; 0 means unbounded
	MaxQueueSize int `mapstructure:"maxQueueSize" yaml:"maxQueueSize,omitempty"`

	// IdleTimeout is how long an idle worker waits before exiting
	IdleTimeout time.Duration `mapstructure:"idleTimeout" yaml:"idleTimeout,omitempty"`

	// Serial runs the pool's tasks one at a time in submission order
	Serial bool `mapstructure:"serial" yaml:"serial,omitempty"`
}

// SchedulerConfig contains scheduler settings
type SchedulerConfig struct {
	// TickInterval is how often due tasks are looked for
	TickInterval time.Duration `mapstructure:"tickInterval" yaml:"tickInterval,omitempty"`

	// MaxTasks limits the number of scheduled tasks
	MaxTasks int `mapstructure:"maxTasks" yaml:"maxTasks,omitempty"`

	// Location is an IANA time zone name used for cron expressions
	Location string `mapstructure:"location" yaml:"location,omitempty"`
}

// MetricsConfig contains metrics settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled,omitempty"`

	// Namespace overrides the default metric namespace
	Namespace string `mapstructure:"namespace" yaml:"namespace,omitempty"`

	// Listen is the address the CLI serves /metrics on
	Listen string `mapstructure:"listen" yaml:"listen,omitempty"`
}

// LogConfig contains logger settings
type LogConfig struct {
	// Level is a logrus level name (debug, info, warn, error)
	Level string `mapstructure:"level" yaml:"level,omitempty"`

	// Format is either text or json
	Format string `mapstructure:"format" yaml:"format,omitempty"`
}
