// Package oneshot provides a listener registry that fires exactly once.
//
// Listeners registered before Fire are invoked by Fire; listeners registered
// after Fire are invoked immediately by Add. Either way every listener runs
// exactly once and is then forgotten.
package oneshot

import "sync"

type entry struct {
	fn func()
}

// Listeners is a one-shot listener registry. The zero value is not usable;
// create instances with New.
type Listeners struct {
	mu      sync.Mutex
	fired   bool
	pending map[*entry]struct{}
	order   []*entry
	done    chan struct{}
}

// New creates an unfired registry.
func New() *Listeners {
	return &Listeners{
		pending: make(map[*entry]struct{}),
		done:    make(chan struct{}),
	}
}

// Add registers fn. If the registry already fired, fn is called
// synchronously before Add returns. The returned function removes fn if it
// has not yet run; calling it after fn ran is a no-op.
func (l *Listeners) Add(fn func()) (unregister func()) {
	e := &entry{fn: fn}

	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		fn()
		return func() {}
	}
	l.pending[e] = struct{}{}
	l.order = append(l.order, e)
	l.mu.Unlock()

	return func() {
		l.mu.Lock()
		delete(l.pending, e)
		l.mu.Unlock()
	}
}

// Fire invokes every pending listener in registration order and reports
// whether this call was the one that fired. Subsequent calls do nothing.
func (l *Listeners) Fire() bool {
	l.mu.Lock()
	if l.fired {
		l.mu.Unlock()
		return false
	}
	l.fired = true
	order := l.order
	pending := l.pending
	l.order = nil
	l.pending = nil
	l.mu.Unlock()

	defer close(l.done)
	for _, e := range order {
		if _, ok := pending[e]; ok {
			e.fn()
		}
	}
	return true
}

// Fired reports whether Fire has been called.
func (l *Listeners) Fired() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.fired
}

// Done is closed once Fire has invoked the listeners pending at that time.
func (l *Listeners) Done() <-chan struct{} {
	return l.done
}
