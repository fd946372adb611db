// Package metrics provides Prometheus instrumentation for taskexec executors.
package metrics

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is the metric namespace used when Config.Namespace is empty.
const DefaultNamespace = "taskexec"

// Registry holds all metric instances for taskexec components.
type Registry struct {
	// Worker Pool Metrics
	TasksSubmitted   *prometheus.CounterVec
	TasksCompleted   *prometheus.CounterVec
	TasksFailed      *prometheus.CounterVec
	TasksCanceled    *prometheus.CounterVec
	CleanupFailures  *prometheus.CounterVec
	TaskDuration     *prometheus.HistogramVec
	QueueWait        *prometheus.HistogramVec
	WorkersStarted   *prometheus.CounterVec
	WorkerPoolSize   *prometheus.GaugeVec
	WorkerPoolIdle   *prometheus.GaugeVec
	WorkerPoolQueued *prometheus.GaugeVec
	TasksExecuting   *prometheus.GaugeVec

	// Dispatch Metrics
	DispatchRuns   *prometheus.CounterVec
	DispatchErrors *prometheus.CounterVec

	// Time Scheduling Metrics
	TasksScheduled *prometheus.CounterVec
	TasksFired     *prometheus.CounterVec
}

// DefaultRegistry is the default metrics registry used by taskexec components.
var DefaultRegistry *Registry

func init() {
	DefaultRegistry = NewRegistry(prometheus.DefaultRegisterer)
}

// NewRegistry creates a new metrics registry with the given Prometheus registerer.
func NewRegistry(reg prometheus.Registerer) *Registry {
	return NewRegistryWithConfig(Config{Registry: reg})
}

// NewRegistryWithConfig creates a metrics registry honoring the namespace and
// constant labels of config.
func NewRegistryWithConfig(config Config) *Registry {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	factory := promauto.With(reg)
	labels := config.Labels

	counter := func(subsystem, name, help string, keys ...string) *prometheus.CounterVec {
		return factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, keys)
	}
	gauge := func(subsystem, name, help string, keys ...string) *prometheus.GaugeVec {
		return factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		}, keys)
	}
	histogram := func(subsystem, name, help string, keys ...string) *prometheus.HistogramVec {
		return factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   ns,
			Subsystem:   subsystem,
			Name:        name,
			Help:        help,
			Buckets:     prometheus.DefBuckets,
			ConstLabels: labels,
		}, keys)
	}

	return &Registry{
		TasksSubmitted: counter("workerpool", "tasks_submitted_total",
			"Total number of tasks submitted to the pool", "pool_name"),
		TasksCompleted: counter("workerpool", "tasks_completed_total",
			"Total number of tasks that completed without error", "pool_name"),
		TasksFailed: counter("workerpool", "tasks_failed_total",
			"Total number of tasks that returned an error or panicked", "pool_name"),
		TasksCanceled: counter("workerpool", "tasks_canceled_total",
			"Total number of tasks that were canceled before or during execution", "pool_name"),
		CleanupFailures: counter("workerpool", "cleanup_failures_total",
			"Total number of cleanup actions that failed", "pool_name"),
		TaskDuration: histogram("workerpool", "task_duration_seconds",
			"Time spent executing task bodies", "pool_name"),
		QueueWait: histogram("workerpool", "queue_wait_seconds",
			"Time tasks spent between submission and execution", "pool_name"),
		WorkersStarted: counter("workerpool", "workers_started_total",
			"Total number of worker goroutines started", "pool_name"),
		WorkerPoolSize: gauge("workerpool", "size",
			"Current number of live workers", "pool_name"),
		WorkerPoolIdle: gauge("workerpool", "idle_workers",
			"Number of workers waiting for a task", "pool_name"),
		WorkerPoolQueued: gauge("workerpool", "queued_tasks",
			"Number of queued tasks", "pool_name"),
		TasksExecuting: gauge("workerpool", "executing_tasks",
			"Number of tasks currently executing", "pool_name"),

		DispatchRuns: counter("dispatch", "runs_total",
			"Total number of queued tasks run by a dispatcher", "dispatcher_name"),
		DispatchErrors: counter("dispatch", "errors_total",
			"Total number of failures reported by a dispatcher", "dispatcher_name"),

		TasksScheduled: counter("scheduler", "tasks_scheduled_total",
			"Total number of tasks scheduled", "scheduler_name"),
		TasksFired: counter("scheduler", "tasks_fired_total",
			"Total number of scheduled firings submitted to an executor", "scheduler_name"),
	}
}

type registryKey struct {
	reg prometheus.Registerer
	ns  string
}

var (
	registriesMu sync.Mutex
	registries   = map[registryKey]*Registry{}
)

// ForConfig returns the Registry for config, creating it on first use.
// Components sharing a Prometheus registerer and namespace share a Registry,
// so repeated calls never register the same collector twice. An error is
// returned if the registerer already holds conflicting collectors.
func ForConfig(config Config) (*Registry, error) {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := config.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if reg == prometheus.DefaultRegisterer && ns == DefaultNamespace && len(config.Labels) == 0 {
		return DefaultRegistry, nil
	}

	registriesMu.Lock()
	defer registriesMu.Unlock()

	key := registryKey{reg: reg, ns: ns}
	if r, ok := registries[key]; ok {
		return r, nil
	}
	r, err := newRegistrySafe(Config{Registry: reg, Namespace: ns, Labels: config.Labels})
	if err != nil {
		return nil, err
	}
	registries[key] = r
	return r, nil
}

func newRegistrySafe(config Config) (r *Registry, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = fmt.Errorf("register metrics: %w", e)
				return
			}
			err = fmt.Errorf("register metrics: %v", rec)
		}
	}()
	return NewRegistryWithConfig(config), nil
}
