package task

import "context"

// DirectExecutor runs every task synchronously in the calling goroutine.
// Unlike pooled executors it returns cleanup failures from Execute, since
// the caller is the only party that can observe them.
type DirectExecutor struct{}

// Execute runs t and cleanup before returning.
func (DirectExecutor) Execute(ctx context.Context, t Task, cleanup Cleanup) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return RunWithCleanup(ctx, t, cleanup)
}
