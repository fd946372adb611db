package workerpool

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/task"
)

// worker is one run loop. active and running record which counters it
// incremented, so each is decremented exactly once.
type worker struct {
	pool    *Pool
	id      int64
	first   *queuedItem
	active  bool
	running bool
}

func (w *worker) run() {
	p := w.pool
	log := p.logger.WithField("worker", w.id)
	log.Debug("worker started")

	finished := false
	if it := w.first; it != nil {
		w.first = nil
		p.mu.Lock()
		skip := p.state >= Terminating
		p.mu.Unlock()
		p.runItem(it, skip, log)
		finished = true
	}
	for {
		it, skip := p.next(w, finished)
		if it == nil {
			if w.exit(log) {
				return
			}
			finished = false
			continue
		}
		p.runItem(it, skip, log)
		finished = true
	}
}

// next returns the next queued item, waiting up to the idle timeout for
// one. If finished is set the item previously returned is accounted as
// done. A nil item means the worker must exit; it is then no longer active.
// A worker above the limit exits after its current task even if items are
// queued; the remaining workers take them.
func (p *Pool) next(w *worker, finished bool) (it *queuedItem, skip bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if finished {
		p.executing--
	}
	timeout := p.idleTimeout
	remaining := timeout
	for {
		if p.activeWorkers > p.maxWorkers {
			w.deactivateLocked()
			p.publishLocked()
			return nil, false
		}
		if e := p.queue.Front(); e != nil {
			it = p.queue.Remove(e).(*queuedItem)
			it.elem = nil
			p.executing++
			p.notFull.broadcast()
			p.publishLocked()
			return it, p.state >= Terminating
		}
		if p.state >= ShuttingDown || remaining <= 0 {
			w.deactivateLocked()
			p.publishLocked()
			return nil, false
		}

		wake := p.notEmpty.wait()
		p.idleWorkers++
		p.publishLocked()
		p.mu.Unlock()

		start := time.Now()
		timer := time.NewTimer(remaining)
		select {
		case <-wake:
		case <-timer.C:
		}
		timer.Stop()

		p.mu.Lock()
		p.idleWorkers--
		remaining -= time.Since(start)
		if p.idleTimeout != timeout {
			remaining = shiftDuration(remaining, p.idleTimeout-timeout)
			timeout = p.idleTimeout
		}
	}
}

// runItem runs the task of it unless skip is set or its context is already
// canceled, then its cleanup.
func (p *Pool) runItem(it *queuedItem, skip bool, log logrus.FieldLogger) {
	canceled, err := true, error(nil)
	if !skip {
		in := p.instruments.Load()
		in.queueWait(time.Since(it.submitted))
		start := time.Now()
		canceled, err = task.Run(context.WithValue(it.ctx, executingKey{}, p), it.task)
		in.taskDuration(time.Since(start))
	}
	if err != nil {
		var pe *teerrors.PanicError
		if errors.As(err, &pe) {
			log.WithFields(logrus.Fields{
				"panic": pe.Value,
				"stack": string(pe.Stack),
			}).Error("task panicked")
		} else {
			log.WithError(err).Debug("task failed")
		}
	}
	p.finishItem(it, canceled, err)
}

func (w *worker) deactivateLocked() {
	if w.active {
		w.active = false
		w.pool.activeWorkers--
	}
}

// exit releases the worker's counters and reports true. Items queued while
// the worker was leaving, with no idle worker to claim them, keep it
// running instead: exit then reactivates it and reports false.
func (w *worker) exit(log logrus.FieldLogger) bool {
	p := w.pool
	p.mu.Lock()
	w.deactivateLocked()
	if p.queue.Len() > p.idleWorkers && p.activeWorkers < p.maxWorkers {
		w.active = true
		p.activeWorkers++
		p.mu.Unlock()
		log.Debug("worker resumed for queued tasks")
		return false
	}
	if w.running {
		w.running = false
		p.runningWorkers--
	}
	if p.activeWorkers < 0 || p.runningWorkers < 0 {
		p.mu.Unlock()
		panic("workerpool: worker counter underflow")
	}
	p.publishLocked()
	p.unlockAndTryTerminate()
	log.Debug("worker stopped")
	return true
}

// shiftDuration returns d+delta clamped to [0, math.MaxInt64].
func shiftDuration(d, delta time.Duration) time.Duration {
	switch {
	case delta > 0 && d > math.MaxInt64-delta:
		return math.MaxInt64
	case delta < 0 && d < math.MinInt64-delta:
		return 0
	}
	if r := d + delta; r > 0 {
		return r
	}
	return 0
}
