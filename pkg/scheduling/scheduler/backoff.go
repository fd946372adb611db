package scheduler

import (
	"context"
	"time"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/task"
)

// BackoffTask wraps a task with retries and exponential backoff.
// Its Run method is a task.Task.
type BackoffTask struct {
	Task         task.Task
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

// Run executes the wrapped task, retrying failures until MaxRetries is
// exhausted. Cancellation is returned as-is and never retried.
func (bt BackoffTask) Run(ctx context.Context) error {
	var lastErr error
	delay := bt.InitialDelay

	for attempt := 0; attempt <= bt.MaxRetries; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}

			delay *= 2
			if bt.MaxDelay > 0 && delay > bt.MaxDelay {
				delay = bt.MaxDelay
			}
		}

		lastErr = bt.Task(ctx)
		if lastErr == nil || teerrors.IsCancellation(lastErr) {
			return lastErr
		}
	}
	return lastErr
}
