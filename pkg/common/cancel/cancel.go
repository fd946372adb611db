// Package cancel adapts context.Context to the cancellation capability used
// by the executors: query the canceled state, register one-shot listeners,
// combine tokens and strip cancellation.
package cancel

import (
	"context"
	"time"
)

// Combine returns a context that is canceled when either parent or other is
// canceled. Values and deadline are inherited from parent only. The returned
// function unlinks the combined context from both; it does not cancel it,
// so contexts derived from it stay live once the links are released.
func Combine(parent, other context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(detached{parent})
	var stops []func() bool
	for _, src := range []context.Context{parent, other} {
		if src == nil || src.Done() == nil {
			continue
		}
		if src.Err() != nil {
			cancel(context.Cause(src))
			continue
		}
		src := src
		stops = append(stops, context.AfterFunc(src, func() {
			cancel(context.Cause(src))
		}))
	}
	return ctx, func() {
		for _, stop := range stops {
			stop()
		}
	}
}

// detached carries the values and deadline of a context without its
// cancellation, so a context derived from it is not registered with the
// original one.
type detached struct {
	parent context.Context
}

func (d detached) Deadline() (time.Time, bool) { return d.parent.Deadline() }
func (d detached) Done() <-chan struct{} { return nil }
func (d detached) Err() error { return nil }
func (d detached) Value(key any) any { return d.parent.Value(key) }

// Uncancelable returns a context carrying the values of ctx that is never
// canceled.
func Uncancelable(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// OnCancel registers fn to be called, at most once and in its own goroutine,
// when ctx is canceled. If ctx is already canceled fn is scheduled
// immediately. The returned function unregisters fn and reports whether it
// did so before fn was started.
func OnCancel(ctx context.Context, fn func()) (unregister func() bool) {
	return context.AfterFunc(ctx, fn)
}

// IsCanceled returns true if the context has been canceled
func IsCanceled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

// IsTimedOut returns true if the context was canceled due to a timeout
func IsTimedOut(ctx context.Context) bool {
	return ctx.Err() == context.DeadlineExceeded
}
