package task

import (
	"context"
	"sync/atomic"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// State is the lifecycle state of a submitted task.
type State int32

const (
	NotStarted State = iota
	Running
	DoneCanceled
	DoneError
	DoneCompleted
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case Running:
		return "running"
	case DoneCanceled:
		return "canceled"
	case DoneError:
		return "failed"
	case DoneCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// IsDone reports whether s is one of the terminal states.
func (s State) IsDone() bool {
	return s >= DoneCanceled
}

// Future is the handle of a task submitted with Submit.
type Future[V any] struct {
	state atomic.Int32
	done  chan struct{}
	value V
	err   error
}

func newFuture[V any]() *Future[V] {
	return &Future[V]{done: make(chan struct{})}
}

// Submit executes fn on ex and returns a Future for its result. The future
// completes after cleanup (if any) has run. If ex rejects the task with an
// error, the returned future is already completed as canceled.
func Submit[V any](ex Executor, ctx context.Context, fn Func[V], cleanup Cleanup) (*Future[V], error) {
	f := newFuture[V]()

	run := func(ctx context.Context) error {
		f.state.CompareAndSwap(int32(NotStarted), int32(Running))
		v, err := fn(ctx)
		if err == nil {
			f.value = v
		}
		return err
	}
	finish := func(canceled bool, err error) error {
		cerr := InvokeCleanup(cleanup, canceled, err)
		f.complete(canceled, err)
		return cerr
	}

	if err := ex.Execute(ctx, run, finish); err != nil {
		f.complete(true, nil)
		return f, err
	}
	return f, nil
}

// SubmitTask is Submit for a task without a result.
func SubmitTask(ex Executor, ctx context.Context, t Task, cleanup Cleanup) (*Future[struct{}], error) {
	return Submit(ex, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, t(ctx)
	}, cleanup)
}

func (f *Future[V]) complete(canceled bool, err error) {
	state := DoneCompleted
	switch {
	case canceled:
		state = DoneCanceled
	case err != nil:
		state = DoneError
	}

	for {
		cur := State(f.state.Load())
		if cur.IsDone() {
			return
		}
		if f.state.CompareAndSwap(int32(cur), int32(state)) {
			break
		}
	}
	if state != DoneCompleted {
		var zero V
		f.value = zero
	}
	f.err = err
	close(f.done)
}

// State returns the current state of the task.
func (f *Future[V]) State() State {
	return State(f.state.Load())
}

// Done is closed when the task and its cleanup finished.
func (f *Future[V]) Done() <-chan struct{} {
	return f.done
}

// Get waits for the result. A failed task is reported as a
// *errors.TaskExecutionError, a canceled one as errors.ErrTaskCanceled.
// If ctx is done first, ctx.Err() is returned.
func (f *Future[V]) Get(ctx context.Context) (V, error) {
	select {
	case <-f.done:
		return f.result()
	case <-ctx.Done():
		var zero V
		return zero, ctx.Err()
	}
}

// TryGet returns the result without blocking; done is false if the task
// has not completed yet.
func (f *Future[V]) TryGet() (v V, done bool, err error) {
	select {
	case <-f.done:
		v, err = f.result()
		return v, true, err
	default:
		return v, false, nil
	}
}

func (f *Future[V]) result() (V, error) {
	switch f.State() {
	case DoneCanceled:
		var zero V
		return zero, teerrors.ErrTaskCanceled
	case DoneError:
		var zero V
		return zero, &teerrors.TaskExecutionError{Cause: f.err}
	default:
		return f.value, nil
	}
}
