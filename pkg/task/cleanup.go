package task

import (
	"sync/atomic"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// cleanupState is either pending, holding zero or more actions to run in
// order, or consumed, holding the outcome the actions were run with.
type cleanupState struct {
	actions  []Cleanup
	consumed bool
	canceled bool
	err      error
}

// CleanupSlot holds the cleanup of one submitted task. Further actions can
// be chained onto it; consuming the slot runs every action exactly once.
type CleanupSlot struct {
	state atomic.Pointer[cleanupState]
}

// NewCleanupSlot creates a slot holding cleanup, or no action if nil.
func NewCleanupSlot(cleanup Cleanup) *CleanupSlot {
	s := &CleanupSlot{}
	st := &cleanupState{}
	if cleanup != nil {
		st.actions = []Cleanup{cleanup}
	}
	s.state.Store(st)
	return s
}

// Chain appends cleanup so that it runs after the actions already in the
// slot, even if those fail. If the slot was already consumed, cleanup runs
// immediately with the recorded outcome and its failure is returned.
func (s *CleanupSlot) Chain(cleanup Cleanup) error {
	if cleanup == nil {
		return nil
	}
	for {
		old := s.state.Load()
		if old.consumed {
			return InvokeCleanup(cleanup, old.canceled, old.err)
		}
		actions := make([]Cleanup, len(old.actions), len(old.actions)+1)
		copy(actions, old.actions)
		next := &cleanupState{actions: append(actions, cleanup)}
		if s.state.CompareAndSwap(old, next) {
			return nil
		}
	}
}

// Consume runs all chained actions in order, exactly once. Every action
// runs even if an earlier one failed; failures are combined with the first
// one as primary. Calls after the first return nil without running anything.
func (s *CleanupSlot) Consume(canceled bool, err error) error {
	next := &cleanupState{consumed: true, canceled: canceled, err: err}
	var old *cleanupState
	for {
		old = s.state.Load()
		if old.consumed {
			return nil
		}
		if s.state.CompareAndSwap(old, next) {
			break
		}
	}
	var errs []error
	for _, action := range old.actions {
		errs = append(errs, InvokeCleanup(action, canceled, err))
	}
	return teerrors.Combine(errs...)
}

// Consumed reports whether Consume has been called.
func (s *CleanupSlot) Consumed() bool {
	return s.state.Load().consumed
}

// Len returns the number of pending actions, 0 once consumed.
func (s *CleanupSlot) Len() int {
	return len(s.state.Load().actions)
}
