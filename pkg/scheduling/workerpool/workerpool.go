package workerpool

import (
	"context"
	"fmt"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/task"
)

// Execute submits t to the pool. cleanup, if not nil, is called exactly
// once after t finished or was skipped.
//
// If the queue is full and no worker can be started, Execute blocks until
// space is available, the pool shuts down, or ctx is done. A submitter with
// a cleanup is never released by ctx: it waits for space or shutdown, so
// its cleanup runs only after the pool had the chance to run t.
//
// Execute returns an error only if a worker could not be started for t, or
// t is nil. Cleanup has already run in that case.
func (p *Pool) Execute(ctx context.Context, t task.Task, cleanup task.Cleanup) error {
	if t == nil {
		_ = task.InvokeCleanup(cleanup, true, nil)
		return teerrors.NewValidationError(module, "task", nil, "cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	it := p.newItem(ctx, t, cleanup)
	p.instruments.Load().submitted()

	p.mu.Lock()
	admitted, err := p.admitLocked(it)
	if admitted {
		p.mu.Unlock()
		return nil
	}
	p.pendingCleanups++
	p.mu.Unlock()

	p.finishItem(it, true, nil)

	p.mu.Lock()
	p.pendingCleanups--
	p.unlockAndTryTerminate()
	return err
}

// admitLocked hands it to an idle worker, a new worker or the queue, in
// that order of preference, blocking while the queue is full. It reports
// false if it was not admitted and must be finished as canceled.
// Called and returns with p.mu held.
func (p *Pool) admitLocked(it *queuedItem) (bool, error) {
	for {
		if p.state >= ShuttingDown {
			return false, nil
		}
		// Idle workers not yet claimed by a queued item.
		if p.idleWorkers > p.queue.Len() && p.queue.Len() < p.maxQueueSize {
			p.enqueueLocked(it)
			return true, nil
		}
		if p.runningWorkers < p.maxWorkers {
			if err := p.startWorkerLocked(it); err != nil {
				return false, err
			}
			return true, nil
		}
		if p.queue.Len() < p.maxQueueSize {
			p.enqueueLocked(it)
			return true, nil
		}

		wake := p.notFull.wait()
		p.pendingCleanups++
		p.mu.Unlock()
		var abandoned bool
		select {
		case <-wake:
		case <-it.waitCtx.Done():
			abandoned = true
		}
		p.mu.Lock()
		p.pendingCleanups--
		if abandoned {
			return false, nil
		}
	}
}

// enqueueLocked appends it to the queue and arranges for it to be removed
// and cleaned up as soon as its context is canceled.
func (p *Pool) enqueueLocked(it *queuedItem) {
	it.elem = p.queue.PushBack(it)
	it.stopListener = context.AfterFunc(it.ctx, func() {
		p.dequeueCanceled(it)
	})
	p.notEmpty.broadcast()
	p.publishLocked()
}

// dequeueCanceled removes a canceled item that no worker has taken yet
// and runs its cleanup on the calling goroutine.
func (p *Pool) dequeueCanceled(it *queuedItem) {
	p.mu.Lock()
	if it.elem == nil {
		p.mu.Unlock()
		return
	}
	p.queue.Remove(it.elem)
	it.elem = nil
	p.pendingCleanups++
	p.notFull.broadcast()
	p.publishLocked()
	p.mu.Unlock()

	p.finishItem(it, true, nil)

	p.mu.Lock()
	p.pendingCleanups--
	p.unlockAndTryTerminate()
}

// startWorkerLocked starts a worker that runs first, if not nil, before
// taking tasks from the queue. The mutex is released while the starter runs.
// On failure every counter is rolled back.
func (p *Pool) startWorkerLocked(first *queuedItem) error {
	w := &worker{
		pool:    p,
		id:      p.nextWorkerID.Add(1),
		first:   first,
		active:  true,
		running: true,
	}
	p.runningWorkers++
	p.activeWorkers++
	if first != nil {
		p.executing++
	}
	starter := p.starter
	p.mu.Unlock()

	err := starter.Start(w.run)

	p.mu.Lock()
	if err != nil {
		p.runningWorkers--
		p.activeWorkers--
		if first != nil {
			p.executing--
		}
		p.publishLocked()
		return teerrors.NewOperationError(module, "StartWorker", fmt.Errorf("%w: %w", teerrors.ErrWorkerStart, err)).
			WithContext("pool=" + p.name)
	}
	p.instruments.Load().workerStarted()
	p.publishLocked()
	return nil
}

// finishItem runs the item's cleanup and records the outcome.
func (p *Pool) finishItem(it *queuedItem, canceled bool, err error) {
	in := p.instruments.Load()
	if cerr := it.finish(canceled, err); cerr != nil {
		p.logger.WithError(cerr).Error("task cleanup failed")
		in.cleanupFailed()
	}
	in.finished(canceled, err)
}
