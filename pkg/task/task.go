package task

import (
	"context"
	"time"
)

// Task is a cancelable unit of work.
type Task func(ctx context.Context) error

// Func is a function-shaped task producing a value.
type Func[V any] func(ctx context.Context) (V, error)

// Cleanup finalizes a task. canceled is true iff the task never started
// or ended with a cancellation signal after its context was canceled;
// otherwise err is the task's error.
type Cleanup func(canceled bool, err error) error

// Executor runs tasks.
//
// Execute never reports task failures; those go to cleanup. The returned
// error is reserved for admission failures, such as a worker that could
// not be started. Cleanup has already run when Execute returns such an error.
type Executor interface {
	Execute(ctx context.Context, task Task, cleanup Cleanup) error
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, task Task, cleanup Cleanup) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, task Task, cleanup Cleanup) error {
	return f(ctx, task, cleanup)
}

// ExecutorService is an Executor with an orderly shutdown protocol.
type ExecutorService interface {
	Executor

	// Shutdown stops accepting new tasks. Already submitted tasks still run.
	Shutdown()

	// ShutdownAndCancel shuts down and cancels every submitted task.
	// Tasks not yet started never start; their cleanup still runs.
	ShutdownAndCancel()

	IsShutdown() bool
	IsTerminated() bool

	// AwaitTermination blocks until the executor terminated or ctx is done.
	AwaitTermination(ctx context.Context) error

	// TryAwaitTermination is AwaitTermination bounded by timeout. It
	// returns false, nil if the timeout elapsed first.
	TryAwaitTermination(ctx context.Context, timeout time.Duration) (bool, error)

	// AddTerminateListener registers a listener called exactly once when
	// the executor terminates, immediately if it already has.
	AddTerminateListener(listener func()) (unregister func())
}

// Monitor exposes advisory statistics. The values are snapshots and must
// not be used for synchronization.
type Monitor interface {
	NumberOfQueuedTasks() int
	NumberOfExecutingTasks() int

	// IsExecutingInThis reports whether ctx belongs to a task run by this
	// executor.
	IsExecutingInThis(ctx context.Context) bool
}
