package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/scheduling/scheduler"
	"github.com/vnykmshr/taskexec/pkg/scheduling/serial"
	"github.com/vnykmshr/taskexec/pkg/scheduling/workerpool"
	"github.com/vnykmshr/taskexec/pkg/task"
)

const (
	defaultConfigName = "taskexec"
	defaultConfigDir  = ".taskexec"

	// EnvPrefix prefixes environment overrides, e.g. TASKEXEC_LOG_LEVEL.
	EnvPrefix = "TASKEXEC"
)

// Manager loads taskexec configuration from a file and the environment
type Manager struct {
	configPath string
	config     *Config
	viper      *viper.Viper
}

// NewManager creates a new configuration manager. An empty configPath
// searches ./taskexec.yaml and ~/.taskexec/taskexec.yaml.
func NewManager(configPath string) *Manager {
	return &Manager{
		configPath: configPath,
		viper:      viper.New(),
		config:     &Config{},
	}
}

// Load is a shortcut for NewManager(configPath).Load().
func Load(configPath string) (*Config, error) {
	return NewManager(configPath).Load()
}

// Load reads the configuration file, applies environment overrides and
// defaults, and validates the result. A missing file is not an error.
func (m *Manager) Load() (*Config, error) {
	if m.configPath != "" {
		m.viper.SetConfigFile(m.configPath)
	} else {
		m.viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			m.viper.AddConfigPath(filepath.Join(home, defaultConfigDir))
		}
		m.viper.SetConfigName(defaultConfigName)
		m.viper.SetConfigType("yaml")
	}

	setDefaults(m.viper)

	m.viper.SetEnvPrefix(EnvPrefix)
	m.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	m.viper.AutomaticEnv()

	if err := m.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	m.config = &Config{}
	if err := m.viper.Unmarshal(m.config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := m.config.Validate(); err != nil {
		return nil, err
	}
	return m.config, nil
}

// GetConfig returns the current configuration
func (m *Manager) GetConfig() *Config {
	return m.config
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.viper.ConfigFileUsed()
}

// setDefaults registers every scalar key so environment overrides apply
// even when the file does not mention them.
func setDefaults(v *viper.Viper) {
	defaults := workerpool.DefaultConfig()
	v.SetDefault("defaults.maxWorkers", defaults.MaxWorkers)
	v.SetDefault("defaults.maxQueueSize", 0)
	v.SetDefault("defaults.idleTimeout", defaults.IdleTimeout)
	v.SetDefault("defaults.serial", false)

	v.SetDefault("scheduler.tickInterval", 50*time.Millisecond)
	v.SetDefault("scheduler.maxTasks", 10000)
	v.SetDefault("scheduler.location", "Local")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.namespace", metrics.DefaultNamespace)
	v.SetDefault("metrics.listen", ":9090")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	for _, name := range c.PoolNames() {
		cfg, _ := c.Pool(name)
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("pool %q: %w", name, err)
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		return teerrors.NewValidationError("config", "log.level", c.Log.Level, err.Error())
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return teerrors.NewValidationError("config", "log.format", c.Log.Format, "unknown format").
			WithHint("use text or json")
	}
	if _, err := c.location(); err != nil {
		return teerrors.NewValidationError("config", "scheduler.location", c.Scheduler.Location, err.Error())
	}
	return nil
}

// PoolNames returns the configured pool names, sorted. Names are
// lowercased when read from a file.
func (c *Config) PoolNames() []string {
	names := make([]string, 0, len(c.Pools))
	for name := range c.Pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Pool returns the workerpool configuration of a named pool, with unset
// fields taken from Defaults.
func (c *Config) Pool(name string) (workerpool.Config, bool) {
	pc, ok := c.Pools[name]
	if !ok {
		return workerpool.Config{}, false
	}
	pc = c.merge(pc)

	queue := pc.MaxQueueSize
	if queue == 0 {
		queue = workerpool.UnboundedQueue
	}
	return workerpool.Config{
		Name:         name,
		MaxWorkers:   pc.MaxWorkers,
		MaxQueueSize: queue,
		IdleTimeout:  pc.IdleTimeout,
		Metrics:      c.MetricsConfig(),
	}, true
}

func (c *Config) merge(pc PoolConfig) PoolConfig {
	if pc.MaxWorkers == 0 {
		pc.MaxWorkers = c.Defaults.MaxWorkers
	}
	if pc.MaxQueueSize == 0 {
		pc.MaxQueueSize = c.Defaults.MaxQueueSize
	}
	if pc.IdleTimeout == 0 {
		pc.IdleTimeout = c.Defaults.IdleTimeout
	}
	if !pc.Serial {
		pc.Serial = c.Defaults.Serial
	}
	return pc
}

// MetricsConfig returns the metrics configuration for components.
func (c *Config) MetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:   c.Metrics.Enabled,
		Namespace: c.Metrics.Namespace,
	}
}

// NewLogger returns a logger configured from the log section.
func (c *Config) NewLogger() (*logrus.Logger, error) {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return nil, err
	}
	logger := logrus.New()
	logger.SetLevel(level)
	if c.Log.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger, nil
}

func (c *Config) location() (*time.Location, error) {
	switch c.Scheduler.Location {
	case "", "Local":
		return time.Local, nil
	default:
		return time.LoadLocation(c.Scheduler.Location)
	}
}

// SchedulerConfig returns the scheduler configuration running firings on exec.
func (c *Config) SchedulerConfig(exec task.Executor, logger logrus.FieldLogger) (scheduler.Config, error) {
	loc, err := c.location()
	if err != nil {
		return scheduler.Config{}, err
	}
	return scheduler.Config{
		Executor:     exec,
		Location:     loc,
		TickInterval: c.Scheduler.TickInterval,
		MaxTasks:     c.Scheduler.MaxTasks,
		Logger:       logger,
		Metrics:      c.MetricsConfig(),
	}, nil
}

// Executors holds the pools built from a configuration and the executor
// tasks are submitted to for each of them.
type Executors struct {
	pools     map[string]*workerpool.Pool
	executors map[string]task.Executor
}

// NewExecutors creates every configured pool. Pools marked serial are
// wrapped in a serial executor.
func (c *Config) NewExecutors(logger logrus.FieldLogger) (*Executors, error) {
	e := &Executors{
		pools:     make(map[string]*workerpool.Pool, len(c.Pools)),
		executors: make(map[string]task.Executor, len(c.Pools)),
	}
	for _, name := range c.PoolNames() {
		cfg, _ := c.Pool(name)
		cfg.Logger = logger
		pool, err := workerpool.New(cfg)
		if err != nil {
			e.shutdownNow()
			return nil, fmt.Errorf("pool %q: %w", name, err)
		}
		e.pools[name] = pool
		e.executors[name] = pool
		if c.merge(c.Pools[name]).Serial {
			e.executors[name] = serial.New(pool,
				serial.WithName(name),
				serial.WithLogger(logger),
				serial.WithMetrics(c.MetricsConfig()))
		}
	}
	return e, nil
}

// Executor returns the executor of a named pool.
func (e *Executors) Executor(name string) (task.Executor, bool) {
	ex, ok := e.executors[name]
	return ex, ok
}

// Pool returns a named pool.
func (e *Executors) Pool(name string) (*workerpool.Pool, bool) {
	p, ok := e.pools[name]
	return p, ok
}

// Names returns the pool names, sorted.
func (e *Executors) Names() []string {
	names := make([]string, 0, len(e.pools))
	for name := range e.pools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Shutdown shuts every pool down and waits for them to terminate.
func (e *Executors) Shutdown(ctx context.Context) error {
	for _, p := range e.pools {
		p.Shutdown()
	}
	var errs []error
	for _, p := range e.pools {
		if err := p.AwaitTermination(ctx); err != nil {
			errs = append(errs, fmt.Errorf("pool %q: %w", p.Name(), err))
		}
	}
	return teerrors.Combine(errs...)
}

func (e *Executors) shutdownNow() {
	for _, p := range e.pools {
		p.ShutdownAndCancel()
		_ = p.AwaitTermination(context.Background())
	}
}
