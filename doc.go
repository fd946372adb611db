/*
Package taskexec provides bounded worker pool executors for concurrent Go
applications.

Task contract (pkg/task):
  - Task and Cleanup: a unit of work and the callback that reports its outcome exactly once
  - Executor: anything that accepts a task with its cleanup
  - Future: the result of a submitted task

Executors (pkg/scheduling):
  - workerpool: Bounded pool with a bounded queue and idle worker expiry
  - taskscheduler: Dispatches queued tasks through a caller-supplied dispatcher
  - serial: Runs tasks one at a time in submission order on another executor
  - scheduler: Delayed, repeating and cron firings submitted to an executor

Example usage:

	import (
		"github.com/vnykmshr/taskexec/pkg/scheduling/workerpool"
		"github.com/vnykmshr/taskexec/pkg/task"
	)

	pool, _ := workerpool.New(workerpool.Config{MaxWorkers: 5, MaxQueueSize: 100, IdleTimeout: time.Minute})

	pool.Execute(ctx, work, func(canceled bool, err error) error {
		// Runs exactly once, whether work ran, failed or was canceled
		return nil
	})

	pool.Shutdown()
	pool.AwaitTermination(ctx)
*/
package taskexec
