package task

import (
	"context"
	"runtime/debug"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// Run executes t unless ctx is already canceled, and classifies the outcome
// the way cleanup expects it. Panics are recovered as *errors.PanicError.
func Run(ctx context.Context, t Task) (canceled bool, err error) {
	if ctx.Err() != nil {
		return true, nil
	}
	err = safeCall(func() error { return t(ctx) })
	return classify(ctx, err)
}

// RunWithCleanup executes t with Run and then cleanup. It returns only the
// cleanup failure, never the task's error.
func RunWithCleanup(ctx context.Context, t Task, cleanup Cleanup) error {
	canceled, err := Run(ctx, t)
	return InvokeCleanup(cleanup, canceled, err)
}

// InvokeCleanup calls cleanup, converting a panic into an error.
// A nil cleanup is a no-op.
func InvokeCleanup(cleanup Cleanup, canceled bool, err error) error {
	if cleanup == nil {
		return nil
	}
	return safeCall(func() error { return cleanup(canceled, err) })
}

// classify treats err as the cancellation signal only when ctx itself was
// canceled. A task's own timeout or canceled child context is a failure.
func classify(ctx context.Context, err error) (canceled bool, _ error) {
	switch {
	case err == nil:
		return false, nil
	case ctx.Err() != nil && teerrors.IsCancellation(err):
		return true, nil
	default:
		return false, err
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &teerrors.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
