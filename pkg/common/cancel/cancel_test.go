package cancel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/taskexec/internal/testutil"
)

func TestCombine_ParentCancels(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	other, cancelOther := context.WithCancel(context.Background())
	defer cancelOther()

	ctx, release := Combine(parent, other)
	defer release()

	testutil.AssertEqual(t, IsCanceled(ctx), false)
	cancelParent()
	testutil.WaitClosed(t, ctx.Done(), time.Second)
	testutil.AssertEqual(t, context.Cause(ctx), context.Canceled)
}

func TestCombine_AlreadyCanceled(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	cancelParent()

	ctx, release := Combine(parent, context.Background())
	defer release()
	testutil.AssertEqual(t, IsCanceled(ctx), true)
}

func TestCombine_KeepsDeadlineAndValues(t *testing.T) {
	deadline := time.Now().Add(time.Hour)
	parent, cancelParent := context.WithDeadline(context.WithValue(context.Background(), valueKey{}, "v"), deadline)
	defer cancelParent()

	ctx, release := Combine(parent, context.Background())
	defer release()
	got, ok := ctx.Deadline()
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, got.Equal(deadline), true)
	testutil.AssertEqual(t, ctx.Value(valueKey{}), any("v"))
}

func TestCombine_OtherCancels(t *testing.T) {
	other, cancelOther := context.WithCancelCause(context.Background())
	ctx, release := Combine(context.Background(), other)
	defer release()

	cause := errors.New("shutdown")
	cancelOther(cause)

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("combined context was not canceled")
	}
	testutil.AssertEqual(t, context.Cause(ctx), cause)
}

func TestCombine_ReleaseDetaches(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	other, cancelOther := context.WithCancel(context.Background())
	ctx, release := Combine(parent, other)
	child, cancelChild := context.WithCancel(ctx)
	defer cancelChild()

	release()
	testutil.AssertEqual(t, IsCanceled(ctx), false)
	testutil.AssertEqual(t, IsCanceled(child), false)

	cancelParent()
	cancelOther()
	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, IsCanceled(ctx), false)
}

func TestCombine_NeverCanceledOther(t *testing.T) {
	ctx, release := Combine(context.Background(), context.Background())
	testutil.AssertEqual(t, IsCanceled(ctx), false)
	release()
	testutil.AssertEqual(t, IsCanceled(ctx), false)
}

type valueKey struct{}

func TestUncancelable(t *testing.T) {
	parent, cancel := context.WithCancel(context.WithValue(context.Background(), valueKey{}, "v"))
	cancel()

	ctx := Uncancelable(parent)
	testutil.AssertEqual(t, IsCanceled(ctx), false)
	testutil.AssertEqual(t, ctx.Value(valueKey{}), any("v"))
}

func TestOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	fired := make(chan struct{})

	OnCancel(ctx, func() {
		calls.Add(1)
		close(fired)
	})
	cancel()
	cancel()

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("listener did not fire")
	}
	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int32(1))
}

func TestOnCancel_Unregister(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32

	unregister := OnCancel(ctx, func() { calls.Add(1) })
	testutil.AssertEqual(t, unregister(), true)
	cancel()

	time.Sleep(10 * time.Millisecond)
	testutil.AssertEqual(t, calls.Load(), int32(0))
}

func TestIsTimedOut(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Millisecond)
	defer cancel()
	<-ctx.Done()
	testutil.AssertEqual(t, IsTimedOut(ctx), true)

	ctx2, cancel2 := context.WithCancel(context.Background())
	cancel2()
	testutil.AssertEqual(t, IsTimedOut(ctx2), false)
}
