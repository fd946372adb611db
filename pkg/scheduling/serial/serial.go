package serial

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/sirupsen/logrus"
	"github.com/vnykmshr/taskexec/pkg/common/cancel"
	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/scheduling/taskscheduler"
	"github.com/vnykmshr/taskexec/pkg/task"
)

// Option is a functional option for configuring an Executor
type Option func(*Options)

// Options holds configuration for an Executor
type Options struct {
	// Name identifies the executor in logs and metrics
	Name string

	// Logger receives cleanup and dispatch failures
	Logger logrus.FieldLogger

	// Metrics enables dispatch counters
	Metrics metrics.Config
}

// WithName sets the executor name
func WithName(name string) Option {
	return func(o *Options) {
		o.Name = name
	}
}

// WithLogger sets the logger
func WithLogger(logger logrus.FieldLogger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithMetrics enables dispatch metrics
func WithMetrics(config metrics.Config) Option {
	return func(o *Options) {
		o.Metrics = config
	}
}

// Executor runs tasks one at a time in submission order on top of another
// executor. No lock is held while a task runs, so a task may submit to the
// Executor it runs on; such a task is queued and runs after the current one.
type Executor struct {
	underlying task.Executor
	scheduler  *taskscheduler.Scheduler
	logger     logrus.FieldLogger

	// abandoning is positive while a rejected dispatch drains the queue.
	abandoning atomic.Int32
	executing  atomic.Int32
}

var (
	_ task.Executor = (*Executor)(nil)
	_ task.Monitor  = (*Executor)(nil)
)

// New creates an Executor on top of underlying. A nil underlying runs
// tasks on the submitting goroutine.
func New(underlying task.Executor, opts ...Option) *Executor {
	if underlying == nil {
		underlying = task.DirectExecutor{}
	}
	o := Options{Name: "serial"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}

	return &Executor{
		underlying: underlying,
		scheduler: taskscheduler.New(taskscheduler.Inline,
			taskscheduler.WithName(o.Name),
			taskscheduler.WithMetrics(o.Metrics)),
		logger: o.Logger.WithField("executor", o.Name),
	}
}

type executingKey struct{}

// Execute queues t and asks the underlying executor to drain the queue.
// cleanup runs exactly once, before the next task starts.
//
// If the underlying executor rejects the drain, queued tasks are skipped and
// their cleanups run with canceled set. The underlying executor's admission
// error is returned.
func (e *Executor) Execute(ctx context.Context, t task.Task, cleanup task.Cleanup) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if t == nil {
		_ = task.InvokeCleanup(cleanup, true, nil)
		return teerrors.NewValidationError("serial", "task", nil, "cannot be nil")
	}

	e.scheduler.ScheduleTask(func() {
		e.runEntry(ctx, t, cleanup)
	})
	if e.IsExecutingInThis(ctx) && e.executing.Load() > 0 {
		// The drain running the current task pops t after it.
		return nil
	}
	// Other queued tasks depend on this drain, so it must not be skipped
	// when ctx is canceled.
	return e.underlying.Execute(cancel.Uncancelable(ctx), e.dispatch, e.dispatchDone)
}

func (e *Executor) runEntry(ctx context.Context, t task.Task, cleanup task.Cleanup) {
	if n := e.executing.Add(1); n > 1 {
		panic(fmt.Sprintf("serial: concurrent execution detected (count=%d)", n))
	}
	defer e.executing.Add(-1)

	var err error
	if e.abandoning.Load() > 0 {
		err = task.InvokeCleanup(cleanup, true, nil)
	} else {
		err = task.RunWithCleanup(context.WithValue(ctx, executingKey{}, e), t, cleanup)
	}
	if err != nil {
		e.logger.WithError(err).Error("task cleanup failed")
	}
}

func (e *Executor) dispatch(ctx context.Context) error {
	return e.scheduler.DispatchTasks()
}

// dispatchDone runs after the underlying executor ran or dropped a drain.
func (e *Executor) dispatchDone(canceled bool, err error) error {
	if canceled {
		e.abandoning.Add(1)
		defer e.abandoning.Add(-1)
		if derr := e.scheduler.DispatchTasks(); derr != nil {
			e.logger.WithError(derr).Error("abandoning queued tasks failed")
		}
		return nil
	}
	if err != nil {
		e.logger.WithError(err).Error("dispatch failed")
	}
	return nil
}

// QueuedTasks returns the number of tasks waiting to run.
func (e *Executor) QueuedTasks() int {
	return e.scheduler.QueuedTasks()
}

// NumberOfQueuedTasks implements task.Monitor.
func (e *Executor) NumberOfQueuedTasks() int {
	return e.QueuedTasks()
}

// NumberOfExecutingTasks returns 1 while a task or its cleanup runs, else 0.
func (e *Executor) NumberOfExecutingTasks() int {
	return int(e.executing.Load())
}

// IsExecutingInThis reports whether ctx belongs to a task run by e.
func (e *Executor) IsExecutingInThis(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(executingKey{}).(*Executor)
	return owner == e
}
