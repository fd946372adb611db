package task

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/vnykmshr/taskexec/internal/testutil"
	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

func recording(order *[]string, name string) Cleanup {
	return func(bool, error) error {
		*order = append(*order, name)
		return nil
	}
}

func TestCleanupSlot_ConsumeRunsChainInOrder(t *testing.T) {
	var order []string
	slot := NewCleanupSlot(recording(&order, "c1"))
	testutil.AssertNoError(t, slot.Chain(recording(&order, "c2")))
	testutil.AssertNoError(t, slot.Chain(recording(&order, "c3")))
	testutil.AssertEqual(t, slot.Len(), 3)

	testutil.AssertNoError(t, slot.Consume(false, nil))
	testutil.AssertEqual(t, len(order), 3)
	testutil.AssertEqual(t, order[0], "c1")
	testutil.AssertEqual(t, order[1], "c2")
	testutil.AssertEqual(t, order[2], "c3")
	testutil.AssertEqual(t, slot.Consumed(), true)
}

func TestCleanupSlot_ConsumeOnce(t *testing.T) {
	var calls atomic.Int32
	slot := NewCleanupSlot(func(bool, error) error {
		calls.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = slot.Consume(true, nil)
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, calls.Load(), int32(1))
}

func TestCleanupSlot_EmptyStart(t *testing.T) {
	var order []string
	slot := NewCleanupSlot(nil)
	testutil.AssertEqual(t, slot.Len(), 0)
	testutil.AssertNoError(t, slot.Chain(recording(&order, "added")))
	testutil.AssertNoError(t, slot.Consume(true, nil))
	testutil.AssertEqual(t, len(order), 1)
}

func TestCleanupSlot_ChainAfterConsumeRunsImmediately(t *testing.T) {
	boom := errors.New("boom")
	slot := NewCleanupSlot(nil)
	testutil.AssertNoError(t, slot.Consume(false, boom))

	rec := testutil.NewCleanupRecorder()
	testutil.AssertNoError(t, slot.Chain(rec.Cleanup()))
	rec.AssertOnce(t, false, boom)
}

func TestCleanupSlot_FailuresDoNotStopChain(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	ran := false

	slot := NewCleanupSlot(func(bool, error) error { return first })
	_ = slot.Chain(func(bool, error) error { panic(second) })
	_ = slot.Chain(func(bool, error) error {
		ran = true
		return nil
	})

	err := slot.Consume(false, nil)
	testutil.AssertEqual(t, ran, true)

	var cerr *teerrors.CompositeError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CompositeError, got %T", err)
	}
	testutil.AssertEqual(t, cerr.Primary, first)
	testutil.AssertEqual(t, errors.Is(err, second), true)
}

func TestCleanupSlot_ConcurrentChainAndConsume(t *testing.T) {
	const chains = 50
	for round := 0; round < 20; round++ {
		slot := NewCleanupSlot(nil)
		var calls atomic.Int32

		var wg sync.WaitGroup
		for i := 0; i < chains; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = slot.Chain(func(bool, error) error {
					calls.Add(1)
					return nil
				})
			}()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = slot.Consume(true, nil)
		}()
		wg.Wait()
		_ = slot.Consume(true, nil)

		testutil.AssertEqual(t, calls.Load(), int32(chains))
	}
}
