package scheduler

import (
	"time"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
)

// Options controls how a repeating or cron task fires.
type Options struct {
	// MaxRuns limits the number of firings (0 = unlimited).
	MaxRuns int

	// SkipIfStillRunning skips a firing while the previous one has not
	// finished.
	SkipIfStillRunning bool

	// StopOnError removes the task after a firing fails.
	StopOnError bool

	// OnError is called with the error of a failed firing.
	OnError func(id string, err error)
}

func (o Options) validate() error {
	if o.MaxRuns < 0 {
		return teerrors.NewValidationError(module, "MaxRuns", o.MaxRuns, "cannot be negative").
			WithHint("use 0 for unlimited runs")
	}
	return nil
}

// CronOptions controls a cron task.
type CronOptions struct {
	Options

	// Location overrides the scheduler location for this task.
	Location *time.Location
}
