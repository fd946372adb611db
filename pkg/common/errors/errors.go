package errors

import (
	"context"
	"errors"
	"fmt"
)

// Common error types used across the taskexec library

var (
	// ErrClosed indicates that an operation was attempted on a closed resource
	ErrClosed = errors.New("resource is closed")

	// ErrShutdown indicates that an executor no longer accepts work
	ErrShutdown = errors.New("executor is shut down")

	// ErrTimeout indicates that an operation timed out
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidConfiguration indicates invalid configuration parameters
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrWorkerStart indicates that a worker could not be started
	ErrWorkerStart = errors.New("failed to start worker")

	// ErrTaskCanceled is reported to result waiters of a task which was
	// canceled or never started. It matches context.Canceled.
	ErrTaskCanceled = fmt.Errorf("task canceled: %w", context.Canceled)
)

// IsCancellation returns true if err is the cancellation signal: the
// outcome of a task that observed its context being canceled or timing out.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// IsTemporary returns true if the error indicates a temporary condition
func IsTemporary(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrWorkerStart)
}

// IsValidationError returns true if err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// IsTaskExecutionError returns true if err is, or wraps, a *TaskExecutionError.
func IsTaskExecutionError(err error) bool {
	var terr *TaskExecutionError
	return errors.As(err, &terr)
}
