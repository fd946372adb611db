package taskscheduler

import (
	"runtime/debug"
	"sync"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/metrics"
)

// Executor runs a dispatched callback. Unlike task.Executor it has no
// cancellation or cleanup; an error means fn was not run.
type Executor interface {
	Execute(fn func()) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(fn func()) error

// Execute calls f.
func (f ExecutorFunc) Execute(fn func()) error {
	return f(fn)
}

// Inline runs every callback on the dispatching goroutine.
var Inline Executor = ExecutorFunc(func(fn func()) error {
	fn()
	return nil
})

// Option is a functional option for configuring a Scheduler
type Option func(*Options)

// Options holds configuration for a Scheduler
type Options struct {
	// Name identifies the scheduler in metrics
	Name string

	// Metrics enables dispatch counters
	Metrics metrics.Config
}

// WithName sets the scheduler name
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithMetrics enables dispatch metrics
func WithMetrics(config metrics.Config) Option {
	return func(o *Options) {
		o.Metrics = config
	}
}

// Scheduler is a FIFO queue of callbacks with a non-reentrant dispatch.
//
// ScheduleTask only enqueues and never blocks, so it may be called while
// holding other locks. DispatchTasks hands queued callbacks one at a time to
// the executor. At most one goroutine dispatches at any time; a concurrent or
// nested call to DispatchTasks returns immediately, leaving the queued
// callbacks to the dispatch already in progress, which preserves order.
type Scheduler struct {
	exec Executor
	name string

	mu    sync.Mutex
	queue []func()

	dispatchMu sync.Mutex

	registry *metrics.Registry
}

// New creates a scheduler dispatching to exec. A nil exec means Inline.
func New(exec Executor, opts ...Option) *Scheduler {
	if exec == nil {
		exec = Inline
	}
	o := Options{Name: "default"}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scheduler{exec: exec, name: o.Name}
	if o.Metrics.Enabled {
		if r, err := metrics.ForConfig(o.Metrics); err == nil {
			s.registry = r
		}
	}
	return s
}

// ScheduleTask appends fn to the queue. It does not run fn; call
// DispatchTasks for that.
func (s *Scheduler) ScheduleTask(fn func()) {
	if fn == nil {
		return
	}
	s.mu.Lock()
	s.queue = append(s.queue, fn)
	s.mu.Unlock()
}

// ScheduleTasks appends fns to the queue in order.
func (s *Scheduler) ScheduleTasks(fns []func()) {
	s.mu.Lock()
	for _, fn := range fns {
		if fn != nil {
			s.queue = append(s.queue, fn)
		}
	}
	s.mu.Unlock()
}

// QueuedTasks returns the number of callbacks waiting for dispatch.
func (s *Scheduler) QueuedTasks() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// DispatchTasks runs queued callbacks through the executor until the queue
// is empty, unless another dispatch is already in progress, in which case it
// returns immediately.
//
// A callback that fails to dispatch or panics does not stop the loop. The
// failures are returned together once the queue is drained: the first as
// primary, the rest suppressed.
func (s *Scheduler) DispatchTasks() error {
	var errs []error
	for s.QueuedTasks() > 0 {
		if !s.dispatchMu.TryLock() {
			break
		}
		for {
			fn, ok := s.pop()
			if !ok {
				break
			}
			if err := s.dispatch(fn); err != nil {
				errs = append(errs, err)
			}
		}
		s.dispatchMu.Unlock()
		// A callback scheduled after the last pop, whose dispatcher found
		// the lock held, is picked up by the next iteration.
	}
	return teerrors.Combine(errs...)
}

func (s *Scheduler) pop() (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.queue) == 0 {
		return nil, false
	}
	fn := s.queue[0]
	s.queue[0] = nil
	s.queue = s.queue[1:]
	if len(s.queue) == 0 {
		s.queue = nil
	}
	return fn, true
}

func (s *Scheduler) dispatch(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &teerrors.PanicError{Value: r, Stack: debug.Stack()}
		}
		if s.registry != nil {
			s.registry.DispatchRuns.WithLabelValues(s.name).Inc()
			if err != nil {
				s.registry.DispatchErrors.WithLabelValues(s.name).Inc()
			}
		}
	}()
	return s.exec.Execute(fn)
}
