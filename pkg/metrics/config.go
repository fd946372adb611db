package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Config selects where executors publish their metrics.
type Config struct {
	// Enabled turns instrumentation on. The zero Config publishes nothing.
	Enabled bool

	// Registry receives the collectors; nil means prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Namespace prefixes every metric name; empty means "taskexec".
	Namespace string

	// Labels are constant labels attached to every collector.
	Labels prometheus.Labels
}

// DefaultConfig returns an enabled configuration on the default registerer.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

// Instrumentable is implemented by executors whose metrics can be switched
// on and off at runtime.
type Instrumentable interface {
	EnableMetrics(config Config) error
	DisableMetrics()
	MetricsEnabled() bool
}
