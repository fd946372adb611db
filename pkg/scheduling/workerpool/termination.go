package workerpool

import (
	"context"
	"time"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// Shutdown stops the pool from accepting new tasks. Queued and running
// tasks still run to completion. Shutdown is idempotent and does not wait;
// use AwaitTermination for that.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.state == Running {
		p.state = ShuttingDown
		p.logger.WithField("queued", p.queue.Len()).Info("worker pool shutting down")
	}
	p.notEmpty.broadcast()
	p.notFull.broadcast()
	p.unlockAndTryTerminate()
}

// ShutdownAndCancel shuts the pool down and cancels the context of every
// submitted task. Tasks not yet started are skipped; running tasks observe
// cancellation through their context. All cleanups still run.
func (p *Pool) ShutdownAndCancel() {
	p.mu.Lock()
	if p.state < Terminating {
		p.state = Terminating
		p.logger.WithField("queued", p.queue.Len()).Info("worker pool shutting down and canceling tasks")
	}
	p.notEmpty.broadcast()
	p.notFull.broadcast()
	p.mu.Unlock()

	p.cancelShutdown(teerrors.ErrShutdown)

	p.mu.Lock()
	p.unlockAndTryTerminate()
}

// State returns the current lifecycle state.
func (p *Pool) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// IsShutdown reports whether Shutdown or ShutdownAndCancel was called.
func (p *Pool) IsShutdown() bool {
	return p.State() >= ShuttingDown
}

// IsTerminated reports whether the pool has terminated: it is shut down, its
// queue is empty and no task is executing.
func (p *Pool) IsTerminated() bool {
	return p.State() == Terminated
}

// AwaitTermination blocks until the pool terminated and its terminate
// listeners were notified, or ctx is done.
func (p *Pool) AwaitTermination(ctx context.Context) error {
	select {
	case <-p.terminated.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryAwaitTermination is AwaitTermination bounded by timeout. It reports
// false without an error if the timeout elapsed first.
func (p *Pool) TryAwaitTermination(ctx context.Context, timeout time.Duration) (bool, error) {
	select {
	case <-p.terminated.Done():
		return true, nil
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.terminated.Done():
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

// AddTerminateListener registers listener to be called once when the pool
// terminates, synchronously if it already has. The returned function
// unregisters a listener that has not run yet.
func (p *Pool) AddTerminateListener(listener func()) (unregister func()) {
	return p.terminated.Add(listener)
}

// terminateLocked moves the pool to Terminated if nothing is left to do and
// reports whether it did. Called with p.mu held.
func (p *Pool) terminateLocked() bool {
	if p.state < ShuttingDown || p.state == Terminated {
		return false
	}
	if p.queue.Len() > 0 || p.activeWorkers > 0 || p.executing > 0 || p.pendingCleanups > 0 {
		return false
	}
	p.state = Terminated
	p.notEmpty.broadcast()
	p.notFull.broadcast()
	return true
}

// unlockAndTryTerminate releases p.mu, then notifies terminate listeners if
// the pool just terminated.
func (p *Pool) unlockAndTryTerminate() {
	terminated := p.terminateLocked()
	p.mu.Unlock()
	if !terminated {
		return
	}
	p.cancelShutdown(teerrors.ErrShutdown)
	p.logger.Info("worker pool terminated")
	p.terminated.Fire()
}
