package workerpool

// signal is a condition variable that can be waited on in a select.
// Both methods must be called with the pool mutex held.
type signal struct {
	ch chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

// wait returns a channel closed by the next broadcast.
func (s *signal) wait() <-chan struct{} {
	return s.ch
}

// broadcast wakes every current waiter.
func (s *signal) broadcast() {
	close(s.ch)
	s.ch = make(chan struct{})
}
