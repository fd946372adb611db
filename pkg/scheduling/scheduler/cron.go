package scheduler

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/task"
)

// cronParser accepts the standard five fields, an optional leading seconds
// field and descriptors such as "@hourly" or "@every 5m".
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// ScheduleCron runs t following a cron expression.
//
// Examples:
//
//	"0 */2 * * *"     every 2 hours
//	"30 14 * * 1-5"   2:30 PM on weekdays
//	"*/10 * * * * *"  every 10 seconds
//	"@daily"          every day at midnight
func (s *Scheduler) ScheduleCron(id string, expr string, t task.Task) error {
	return s.ScheduleCronWithOptions(id, expr, t, CronOptions{})
}

// ScheduleCronWithOptions is ScheduleCron with run options.
func (s *Scheduler) ScheduleCronWithOptions(id string, expr string, t task.Task, opts CronOptions) error {
	if err := validateTask(id, t); err != nil {
		return err
	}
	if err := opts.validate(); err != nil {
		return err
	}
	schedule, err := parseCron(expr)
	if err != nil {
		return err
	}

	location := opts.Location
	if location == nil {
		location = s.location
	}
	runAt := schedule.Next(time.Now().In(location))
	if runAt.IsZero() {
		return teerrors.NewValidationError(module, "cronExpr", expr, "never fires")
	}

	return s.add(&scheduledTask{
		id:       id,
		task:     t,
		runAt:    runAt,
		cronExpr: expr,
		schedule: schedule,
		location: location,
		opts:     opts.Options,
	})
}

// UpdateCron replaces the expression of a cron task and reschedules it.
func (s *Scheduler) UpdateCron(id string, expr string) error {
	schedule, err := parseCron(expr)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.tasks[id]
	if !exists || st.schedule == nil {
		return fmt.Errorf("cron task %q not found", id)
	}
	runAt := schedule.Next(time.Now().In(st.location))
	if runAt.IsZero() {
		return teerrors.NewValidationError(module, "cronExpr", expr, "never fires")
	}
	st.cronExpr = expr
	st.schedule = schedule
	st.runAt = runAt
	heap.Fix(&s.queue, st.index)
	return nil
}

// ValidateCronExpression reports whether expr can be scheduled.
func ValidateCronExpression(expr string) error {
	_, err := parseCron(expr)
	return err
}

// NextRuns returns the next n times expr fires after from.
func NextRuns(expr string, from time.Time, n int) ([]time.Time, error) {
	schedule, err := parseCron(expr)
	if err != nil {
		return nil, err
	}
	runs := make([]time.Time, 0, n)
	for current := from; len(runs) < n; {
		current = schedule.Next(current)
		if current.IsZero() {
			break
		}
		runs = append(runs, current)
	}
	return runs, nil
}

// DescribeCron returns a short human-readable description of expr.
func DescribeCron(expr string) string {
	switch expr {
	case "@yearly", "@annually":
		return "once a year (January 1st at midnight)"
	case "@monthly":
		return "once a month (1st day at midnight)"
	case "@weekly":
		return "once a week (Sunday at midnight)"
	case "@daily", "@midnight":
		return "once a day (at midnight)"
	case "@hourly":
		return "once an hour (at minute 0)"
	}
	return "custom schedule: " + expr
}

func parseCron(expr string) (cron.Schedule, error) {
	if expr == "" {
		return nil, teerrors.NewValidationError(module, "cronExpr", expr, "cannot be empty")
	}
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, teerrors.NewValidationError(module, "cronExpr", expr, err.Error()).
			WithHint("use five fields, six with seconds, or a descriptor such as @hourly")
	}
	return schedule, nil
}
