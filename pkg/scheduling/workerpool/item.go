package workerpool

import (
	"container/list"
	"context"
	"time"

	"github.com/vnykmshr/taskexec/pkg/common/cancel"
	"github.com/vnykmshr/taskexec/pkg/task"
)

// queuedItem is a submitted task on its way through the pool.
type queuedItem struct {
	// waitCtx bounds the admission wait. It never ends when the task has a
	// user cleanup, which must not be abandoned.
	waitCtx context.Context
	// ctx is canceled by the submitter's context or by ShutdownAndCancel.
	// Finishing the item only unlinks it, so tasks the item submitted with
	// ctx keep running.
	ctx    context.Context
	unlink func()

	task    task.Task
	cleanup *task.CleanupSlot

	submitted time.Time

	// guarded by the pool mutex
	elem         *list.Element
	stopListener func() bool
}

func (p *Pool) newItem(ctx context.Context, t task.Task, cleanup task.Cleanup) *queuedItem {
	effective, unlink := cancel.Combine(ctx, p.shutdownCtx)
	waitCtx := ctx
	if cleanup != nil {
		waitCtx = cancel.Uncancelable(ctx)
	}
	return &queuedItem{
		waitCtx:   waitCtx,
		ctx:       effective,
		unlink:    unlink,
		task:      t,
		cleanup:   task.NewCleanupSlot(cleanup),
		submitted: time.Now(),
	}
}

// finish runs the item's cleanup once and unlinks its context.
func (it *queuedItem) finish(canceled bool, err error) error {
	cerr := it.cleanup.Consume(canceled, err)
	if it.stopListener != nil {
		it.stopListener()
	}
	it.unlink()
	return cerr
}
