package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vnykmshr/taskexec/internal/testutil"
	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/task"
)

func TestScheduler_CronScheduling(t *testing.T) {
	s, _ := newTestScheduler(t, Config{})
	testutil.AssertNoError(t, s.Start())

	var executed int32
	testutil.AssertNoError(t, s.ScheduleCron("cron", "* * * * * *", counting(&executed)))

	testutil.Eventually(t, func() bool {
		return atomic.LoadInt32(&executed) > 0
	}, 3*time.Second, 20*time.Millisecond)

	next, ok := s.NextRun("cron")
	testutil.AssertEqual(t, ok, true)
	testutil.AssertEqual(t, next.After(time.Now().Add(-time.Second)), true)
}

func TestScheduler_CronMaxRuns(t *testing.T) {
	s, _ := newTestScheduler(t, Config{Executor: task.DirectExecutor{}})
	testutil.AssertNoError(t, s.Start())

	var executed int32
	testutil.AssertNoError(t, s.ScheduleCronWithOptions("once", "@every 20ms", counting(&executed),
		CronOptions{Options: Options{MaxRuns: 1}}))

	testutil.WaitForInt32(t, &executed, 1, time.Second)
	testutil.AssertEventually(t, func() bool { return len(s.List()) == 0 })
}

func TestScheduler_UpdateCron(t *testing.T) {
	s, _ := newTestScheduler(t, Config{Executor: task.DirectExecutor{}})
	testutil.AssertNoError(t, s.Start())

	var executed int32
	testutil.AssertNoError(t, s.ScheduleCron("yearly", "@yearly", counting(&executed)))
	testutil.AssertNoError(t, s.Schedule("plain", counting(&executed), time.Now().Add(time.Hour)))

	testutil.AssertError(t, s.UpdateCron("plain", "@every 10ms"))
	testutil.AssertError(t, s.UpdateCron("missing", "@every 10ms"))
	testutil.AssertEqual(t, teerrors.IsValidationError(s.UpdateCron("yearly", "nope")), true)

	testutil.AssertNoError(t, s.UpdateCron("yearly", "@every 10ms"))
	testutil.Eventually(t, func() bool {
		return atomic.LoadInt32(&executed) > 0
	}, time.Second, 5*time.Millisecond)

	for _, st := range s.List() {
		if st.ID == "yearly" {
			testutil.AssertEqual(t, st.CronExpr, "@every 10ms")
		}
	}
}

func TestScheduler_CronLocation(t *testing.T) {
	s, _ := newTestScheduler(t, Config{Location: time.UTC})
	noop := func(ctx context.Context) error { return nil }

	tokyo := time.FixedZone("JST", 9*60*60)
	testutil.AssertNoError(t, s.ScheduleCron("utc", "0 9 * * *", noop))
	testutil.AssertNoError(t, s.ScheduleCronWithOptions("tokyo", "0 9 * * *", noop, CronOptions{Location: tokyo}))

	utc, _ := s.NextRun("utc")
	jst, _ := s.NextRun("tokyo")
	testutil.AssertEqual(t, utc.In(time.UTC).Hour(), 9)
	testutil.AssertEqual(t, jst.In(tokyo).Hour(), 9)
	testutil.AssertEqual(t, jst.In(time.UTC).Hour(), 0)
}

func TestValidateCronExpression(t *testing.T) {
	tests := []struct {
		expr  string
		valid bool
	}{
		{"*/5 * * * *", true},
		{"30 14 * * 1-5", true},
		{"*/10 * * * * *", true},
		{"@hourly", true},
		{"@every 1m30s", true},
		{"", false},
		{"invalid", false},
		{"61 * * * *", false},
		{"* * * * * * *", false},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			err := ValidateCronExpression(tt.expr)
			testutil.AssertEqual(t, err == nil, tt.valid)
		})
	}
}

func TestNextRuns(t *testing.T) {
	// Friday 2024-01-05 12:00 UTC.
	from := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)

	runs, err := NextRuns("0 9 * * 1-5", from, 3)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, len(runs), 3)
	testutil.AssertEqual(t, runs[0], time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC))
	testutil.AssertEqual(t, runs[1], time.Date(2024, 1, 9, 9, 0, 0, 0, time.UTC))
	testutil.AssertEqual(t, runs[2], time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC))

	runs, err = NextRuns("@hourly", from, 2)
	testutil.AssertNoError(t, err)
	testutil.AssertEqual(t, runs[0], from.Add(time.Hour))
	testutil.AssertEqual(t, runs[1], from.Add(2*time.Hour))

	_, err = NextRuns("bad", from, 1)
	testutil.AssertError(t, err)
}

func TestDescribeCron(t *testing.T) {
	testutil.AssertEqual(t, DescribeCron("@daily"), "once a day (at midnight)")
	testutil.AssertEqual(t, DescribeCron("@annually"), "once a year (January 1st at midnight)")
	testutil.AssertEqual(t, DescribeCron("0 9 * * *"), "custom schedule: 0 9 * * *")
}
