/*
Package workerpool provides a bounded executor backed by a lazily grown set of
worker goroutines.

A Pool starts workers on demand up to MaxWorkers and lets them exit after
IdleTimeout without work. Tasks that find no idle worker and no free worker
slot wait in a FIFO queue bounded by MaxQueueSize; when the queue is full,
submitters block.

Basic usage:

	pool, err := workerpool.New(workerpool.Config{
		Name:         "requests",
		MaxWorkers:   4,
		MaxQueueSize: 100,
		IdleTimeout:  time.Second,
	})
	if err != nil {
		log.Fatal(err)
	}

	err = pool.Execute(ctx, func(ctx context.Context) error {
		// Do work, observing ctx.
		return nil
	}, func(canceled bool, err error) error {
		// Runs exactly once, after the task or instead of it.
		return nil
	})

	pool.Shutdown()
	pool.AwaitTermination(context.Background())

Cleanup Contract:

Every submitted task has its cleanup called exactly once. canceled is true if
the task never ran or returned a cancellation error (context.Canceled or
context.DeadlineExceeded); otherwise err is what the task returned, or an
*errors.PanicError if it panicked. This holds when the pool was already shut
down at submission, when the submitter's context was canceled while the task
was queued, and when ShutdownAndCancel skipped the task.

Task failures never reach the submitter. Execute returns an error only when a
worker could not be started for the task, in which case cleanup has already run
with canceled set.

Results:

The task package turns the cleanup contract into futures:

	f, err := task.Submit(pool, ctx, func(ctx context.Context) (int, error) {
		return 42, nil
	}, nil)
	v, err := f.Get(ctx)

Admission:

A submitted task goes, in order of preference, to an idle worker, to a newly
started worker, or to the queue. When none is possible the submitter blocks
until queue space frees up, the pool shuts down, or its context is done. A
submitter that passed a cleanup is not released by its context, so its cleanup
only runs once the pool had a chance to run the task.

Queued tasks whose context is canceled are removed from the queue right away
and their cleanup runs on the goroutine that observed the cancellation.

Shutdown:

	pool.Shutdown()          // reject new tasks, drain the queue
	pool.ShutdownAndCancel() // also cancel every submitted task

After either call the pool moves to Terminated once the queue is empty and no
task is executing. Terminate listeners registered with AddTerminateListener run
exactly once at that point. AwaitTermination and TryAwaitTermination block
until then.

Configuration:

MaxWorkers, MaxQueueSize, IdleTimeout and the WorkerStarter can be changed at
runtime. Changes apply to decisions made after the call; an idle worker shifts
its remaining wait by the change in IdleTimeout.

Thread Safety:

All Pool methods are safe for concurrent use. Tasks may submit further tasks to
the pool they run on; IsExecutingInThis tells whether a context belongs to a
task of a given pool.

Metrics:

Setting Config.Metrics.Enabled, or calling EnableMetrics, records submissions,
outcomes, cleanup failures, durations and state gauges under the pool name. See
package metrics.
*/
package workerpool
