/*
Package task defines the contract shared by every executor in taskexec.

A Task is a cancelable unit of work. A Cleanup is its finalizer: whenever a
task is handed to an Executor together with a non-nil cleanup, the cleanup
is invoked exactly once, whatever happens to the task:

  - the task returned normally: cleanup(false, nil)
  - the task returned an error or panicked: cleanup(false, err)
  - the task's context was canceled and the task returned a cancellation
    signal (context.Canceled or context.DeadlineExceeded, possibly
    wrapped): cleanup(true, nil). With a live context the same error is a
    failure, e.g. a timeout of the task's own upstream call.
  - the task never started (its context was canceled first, the executor
    was shut down, or admission was abandoned): cleanup(true, nil)

Cancellation is cooperative and expressed through context.Context: a task
observes ctx.Done() and reports cancellation by returning ctx.Err().

Basic usage:

	err := pool.Execute(ctx, func(ctx context.Context) error {
		return process(ctx, item)
	}, func(canceled bool, err error) error {
		return item.Close()
	})

Function-shaped tasks are submitted with Submit, which returns a Future:

	f, err := task.Submit(pool, ctx, func(ctx context.Context) (int, error) {
		return compute(ctx)
	}, nil)
	if err != nil {
		return err
	}
	v, err := f.Get(ctx)

Get reports a failed task as a *errors.TaskExecutionError whose Unwrap
returns the task's error, and a canceled task as errors.ErrTaskCanceled.

Cleanup failures (a returned error or a panic) are owned by the runtime
that invoked the cleanup. Worker pools log them; DirectExecutor returns
them to its caller because there is no other owner.
*/
package task
