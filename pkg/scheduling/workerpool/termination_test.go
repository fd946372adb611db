package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/taskexec/internal/testutil"
)

func TestShutdown_DrainsQueue(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxWorkers: 1, MaxQueueSize: 10, IdleTimeout: time.Second})

	release := make(chan struct{})
	block, started := blocker(release)
	testutil.AssertNoError(t, p.Execute(context.Background(), block, nil))
	testutil.WaitClosed(t, started, testutil.TestTimeout)

	var ran int32
	for i := 0; i < 5; i++ {
		testutil.AssertNoError(t, p.Execute(context.Background(), counting(&ran), nil))
	}

	p.Shutdown()
	p.Shutdown()
	testutil.AssertEqual(t, p.IsShutdown(), true)
	testutil.AssertEqual(t, p.IsTerminated(), false)
	testutil.AssertEqual(t, p.State(), ShuttingDown)

	close(release)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, p.AwaitTermination(ctx))

	testutil.AssertEqual(t, atomic.LoadInt32(&ran), int32(5))
	testutil.AssertEqual(t, p.IsTerminated(), true)
	testutil.AssertEqual(t, p.NumberOfQueuedTasks(), 0)
	testutil.AssertEqual(t, p.NumberOfExecutingTasks(), 0)
}

func TestShutdown_IdlePoolTerminatesImmediately(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxWorkers: 2, MaxQueueSize: 10, IdleTimeout: time.Hour})

	var ran int32
	testutil.AssertNoError(t, p.Execute(context.Background(), counting(&ran), nil))
	testutil.AssertEventually(t, func() bool { return p.NumberOfIdleWorkers() == 1 })

	p.Shutdown()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, p.AwaitTermination(ctx))
	testutil.AssertEventually(t, func() bool { return p.NumberOfWorkers() == 0 })
}

func TestShutdownAndCancel_SkipsUnstartedTasks(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxWorkers: 1, MaxQueueSize: 10, IdleTimeout: time.Second})

	release := make(chan struct{})
	defer close(release)
	block, started := blocker(release)
	running := testutil.NewCleanupRecorder()
	testutil.AssertNoError(t, p.Execute(context.Background(), block, running.Cleanup()))
	testutil.WaitClosed(t, started, testutil.TestTimeout)

	var ran int32
	recs := make([]*testutil.CleanupRecorder, 3)
	for i := range recs {
		recs[i] = testutil.NewCleanupRecorder()
		testutil.AssertNoError(t, p.Execute(context.Background(), counting(&ran), recs[i].Cleanup()))
	}

	p.ShutdownAndCancel()
	testutil.AssertEqual(t, p.IsShutdown(), true)

	running.AssertOnce(t, true, nil)
	for _, rec := range recs {
		rec.AssertOnce(t, true, nil)
	}

	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, p.AwaitTermination(ctx))
	testutil.AssertEqual(t, atomic.LoadInt32(&ran), int32(0))
}

func TestTerminateListeners_ExactlyOnce(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxWorkers: 1, MaxQueueSize: 10, IdleTimeout: time.Second})

	release := make(chan struct{})
	block, started := blocker(release)
	testutil.AssertNoError(t, p.Execute(context.Background(), block, nil))
	testutil.WaitClosed(t, started, testutil.TestTimeout)

	const k = 3
	var before, during, after [k]*testutil.CallbackTracker
	for i := 0; i < k; i++ {
		before[i] = testutil.NewCallbackTracker()
		p.AddTerminateListener(func() { before[i].Mark() })
	}

	p.Shutdown()
	for i := 0; i < k; i++ {
		during[i] = testutil.NewCallbackTracker()
		p.AddTerminateListener(func() { during[i].Mark() })
	}
	for i := 0; i < k; i++ {
		before[i].AssertNotCalled(t)
		during[i].AssertNotCalled(t)
	}

	close(release)
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, p.AwaitTermination(ctx))

	for i := 0; i < k; i++ {
		after[i] = testutil.NewCallbackTracker()
		p.AddTerminateListener(func() { after[i].Mark() })
		// Registered after termination: runs before Add returns.
		after[i].AssertCallCount(t, 1)
	}

	p.Shutdown()
	p.ShutdownAndCancel()

	for i := 0; i < k; i++ {
		before[i].AssertCallCount(t, 1)
		during[i].AssertCallCount(t, 1)
		after[i].AssertCallCount(t, 1)
	}
}

func TestTerminateListener_Unregister(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxWorkers: 1, MaxQueueSize: 10})

	kept := testutil.NewCallbackTracker()
	removed := testutil.NewCallbackTracker()
	p.AddTerminateListener(func() { kept.Mark() })
	unregister := p.AddTerminateListener(func() { removed.Mark() })
	unregister()

	p.Shutdown()
	ctx, cancel := testutil.WithTimeout(t)
	defer cancel()
	testutil.AssertNoError(t, p.AwaitTermination(ctx))

	kept.AssertCallCount(t, 1)
	removed.AssertNotCalled(t)
}

func TestTryAwaitTermination(t *testing.T) {
	p, _ := newTestPool(t, Config{MaxWorkers: 1, MaxQueueSize: 10, IdleTimeout: time.Second})

	release := make(chan struct{})
	block, started := blocker(release)
	testutil.AssertNoError(t, p.Execute(context.Background(), block, nil))
	testutil.WaitClosed(t, started, testutil.TestTimeout)
	p.Shutdown()

	ok, err := p.TryAwaitTermination(context.Background(), 20*time.Millisecond)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, false)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = p.TryAwaitTermination(ctx, time.Hour)
	testutil.AssertError(t, err)
	testutil.AssertEqual(t, ok, false)

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	testutil.AssertError(t, p.AwaitTermination(short))

	close(release)
	ok, err = p.TryAwaitTermination(context.Background(), testutil.TestTimeout)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, ok, true)
}
