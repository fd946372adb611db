package testutil

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// CleanupCall is one recorded invocation of a cleanup callback.
type CleanupCall struct {
	Canceled bool
	Err      error
	At       time.Time
}

// CleanupRecorder hands out a cleanup callback with the
// func(canceled bool, err error) error shape and records every call,
// so tests can assert the exactly-once contract.
type CleanupRecorder struct {
	mu       sync.Mutex
	calls    []CleanupCall
	done     chan struct{}
	doneOnce sync.Once
	result   error
}

// NewCleanupRecorder creates a recorder whose cleanup returns nil.
func NewCleanupRecorder() *CleanupRecorder {
	return &CleanupRecorder{done: make(chan struct{})}
}

// NewFailingCleanupRecorder creates a recorder whose cleanup returns err.
func NewFailingCleanupRecorder(err error) *CleanupRecorder {
	r := NewCleanupRecorder()
	r.result = err
	return r
}

// Cleanup returns the recording callback.
func (r *CleanupRecorder) Cleanup() func(canceled bool, err error) error {
	return func(canceled bool, err error) error {
		r.mu.Lock()
		r.calls = append(r.calls, CleanupCall{Canceled: canceled, Err: err, At: time.Now()})
		r.mu.Unlock()
		r.doneOnce.Do(func() { close(r.done) })
		return r.result
	}
}

// Done is closed on the first call.
func (r *CleanupRecorder) Done() <-chan struct{} {
	return r.done
}

// Calls returns a copy of the recorded calls.
func (r *CleanupRecorder) Calls() []CleanupCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]CleanupCall(nil), r.calls...)
}

// Count returns the number of recorded calls.
func (r *CleanupRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

// AssertOnce waits for the first call, then checks that exactly one call
// was made with the given outcome. errors.Is is used to compare errors.
func (r *CleanupRecorder) AssertOnce(t *testing.T, canceled bool, err error) {
	t.Helper()
	WaitClosed(t, r.done, TestTimeout)
	time.Sleep(5 * time.Millisecond)

	calls := r.Calls()
	if len(calls) != 1 {
		t.Fatalf("cleanup called %d times, want 1", len(calls))
	}
	if calls[0].Canceled != canceled {
		t.Fatalf("cleanup canceled = %v, want %v", calls[0].Canceled, canceled)
	}
	switch {
	case err == nil && calls[0].Err != nil:
		t.Fatalf("cleanup error = %v, want nil", calls[0].Err)
	case err != nil && !errors.Is(calls[0].Err, err):
		t.Fatalf("cleanup error = %v, want %v", calls[0].Err, err)
	}
}
