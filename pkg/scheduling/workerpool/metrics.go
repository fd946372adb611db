package workerpool

import (
	"time"

	"github.com/vnykmshr/taskexec/pkg/metrics"
)

// instruments records pool metrics. A nil *instruments records nothing.
type instruments struct {
	registry *metrics.Registry
	pool     string
}

// EnableMetrics starts recording metrics for this pool.
func (p *Pool) EnableMetrics(config metrics.Config) error {
	registry, err := metrics.ForConfig(config)
	if err != nil {
		return err
	}
	p.instruments.Store(&instruments{registry: registry, pool: p.name})

	p.mu.Lock()
	p.publishLocked()
	p.mu.Unlock()
	return nil
}

// DisableMetrics stops recording metrics for this pool.
func (p *Pool) DisableMetrics() {
	p.instruments.Store(nil)
}

// MetricsEnabled returns true if metrics are currently recorded.
func (p *Pool) MetricsEnabled() bool {
	return p.instruments.Load() != nil
}

// publishLocked updates the state gauges. Called with p.mu held.
func (p *Pool) publishLocked() {
	in := p.instruments.Load()
	if in == nil {
		return
	}
	r := in.registry
	r.WorkerPoolSize.WithLabelValues(in.pool).Set(float64(p.runningWorkers))
	r.WorkerPoolIdle.WithLabelValues(in.pool).Set(float64(p.idleWorkers))
	r.WorkerPoolQueued.WithLabelValues(in.pool).Set(float64(p.queue.Len()))
	r.TasksExecuting.WithLabelValues(in.pool).Set(float64(p.executing))
}

func (in *instruments) submitted() {
	if in == nil {
		return
	}
	in.registry.TasksSubmitted.WithLabelValues(in.pool).Inc()
}

func (in *instruments) workerStarted() {
	if in == nil {
		return
	}
	in.registry.WorkersStarted.WithLabelValues(in.pool).Inc()
}

func (in *instruments) finished(canceled bool, err error) {
	if in == nil {
		return
	}
	switch {
	case canceled:
		in.registry.TasksCanceled.WithLabelValues(in.pool).Inc()
	case err != nil:
		in.registry.TasksFailed.WithLabelValues(in.pool).Inc()
	default:
		in.registry.TasksCompleted.WithLabelValues(in.pool).Inc()
	}
}

func (in *instruments) cleanupFailed() {
	if in == nil {
		return
	}
	in.registry.CleanupFailures.WithLabelValues(in.pool).Inc()
}

func (in *instruments) queueWait(d time.Duration) {
	if in == nil {
		return
	}
	in.registry.QueueWait.WithLabelValues(in.pool).Observe(d.Seconds())
}

func (in *instruments) taskDuration(d time.Duration) {
	if in == nil {
		return
	}
	in.registry.TaskDuration.WithLabelValues(in.pool).Observe(d.Seconds())
}
