package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	teerrors "github.com/vnykmshr/taskexec/pkg/common/errors"
	"github.com/vnykmshr/taskexec/pkg/common/validation"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/scheduling/workerpool"
	"github.com/vnykmshr/taskexec/pkg/task"
)

const module = "scheduler"

const maxIDLength = 255

var (
	// ErrDuplicateTask is returned when a task with the same ID is already scheduled.
	ErrDuplicateTask = errors.New("task already scheduled")

	// ErrTooManyTasks is returned when MaxTasks tasks are already scheduled.
	ErrTooManyTasks = errors.New("maximum number of scheduled tasks reached")

	// ErrAlreadyRunning is returned by Start on a running scheduler.
	ErrAlreadyRunning = errors.New("scheduler already running")
)

// Task describes a scheduled task as reported by List.
type Task struct {
	ID       string
	RunAt    time.Time
	Interval time.Duration // zero for one-time and cron tasks
	CronExpr string
	Runs     int
	Created  time.Time
}

// Config holds scheduler configuration.
type Config struct {
	// Name identifies the scheduler in logs and metrics. Default "scheduler".
	Name string

	// Executor runs the firings. If nil, the scheduler owns a pool of 4
	// workers with a queue of 100 and shuts it down on Stop.
	Executor task.Executor

	// Location is used to evaluate cron expressions. Default time.Local.
	Location *time.Location

	// TickInterval is how often due tasks are looked for. Default 50ms.
	TickInterval time.Duration

	// MaxTasks limits the number of scheduled tasks. Default 10000.
	MaxTasks int

	Logger  logrus.FieldLogger
	Metrics metrics.Config
}

type lifecycle int

const (
	stateNew lifecycle = iota
	stateRunning
	stateStopped
)

// Scheduler submits tasks to an executor at given times, at fixed
// intervals or following cron expressions.
//
// A firing is submitted with the scheduler's run context, which Stop
// cancels. Firing blocks the tick loop while the executor is full.
type Scheduler struct {
	name         string
	exec         task.Executor
	ownPool      *workerpool.Pool
	location     *time.Location
	tickInterval time.Duration
	maxTasks     int
	logger       logrus.FieldLogger
	registry     *metrics.Registry

	mu        sync.Mutex
	tasks     map[string]*scheduledTask
	queue     taskHeap
	state     lifecycle
	done      chan struct{}
	runCtx    context.Context
	cancelRun context.CancelFunc
	wg        sync.WaitGroup
}

// New creates a scheduler with default configuration.
func New() (*Scheduler, error) {
	return NewWithConfig(Config{})
}

// NewWithConfig creates a scheduler with custom configuration.
func NewWithConfig(cfg Config) (*Scheduler, error) {
	if err := validation.ValidateNonNegativeDuration(module, "TickInterval", cfg.TickInterval); err != nil {
		return nil, err
	}
	if cfg.MaxTasks < 0 {
		return nil, teerrors.NewValidationError(module, "MaxTasks", cfg.MaxTasks, "cannot be negative")
	}
	if cfg.Name == "" {
		cfg.Name = "scheduler"
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.StandardLogger()
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = 50 * time.Millisecond
	}
	if cfg.MaxTasks == 0 {
		cfg.MaxTasks = 10000
	}

	s := &Scheduler{
		name:         cfg.Name,
		exec:         cfg.Executor,
		location:     cfg.Location,
		tickInterval: cfg.TickInterval,
		maxTasks:     cfg.MaxTasks,
		logger:       cfg.Logger.WithField("scheduler", cfg.Name),
		tasks:        make(map[string]*scheduledTask),
		done:         make(chan struct{}),
	}
	s.runCtx, s.cancelRun = context.WithCancel(context.Background())

	if cfg.Metrics.Enabled {
		registry, err := metrics.ForConfig(cfg.Metrics)
		if err != nil {
			return nil, err
		}
		s.registry = registry
	}

	if s.exec == nil {
		pool, err := workerpool.New(workerpool.Config{
			Name:         cfg.Name,
			MaxWorkers:   4,
			MaxQueueSize: 100,
			IdleTimeout:  time.Minute,
			Logger:       cfg.Logger,
			Metrics:      cfg.Metrics,
		})
		if err != nil {
			return nil, err
		}
		s.exec = pool
		s.ownPool = pool
	}
	return s, nil
}

// Name returns the scheduler name.
func (s *Scheduler) Name() string {
	return s.name
}

// Schedule runs t once at runAt. A runAt in the past fires on the next tick.
func (s *Scheduler) Schedule(id string, t task.Task, runAt time.Time) error {
	if err := validateTask(id, t); err != nil {
		return err
	}
	if runAt.IsZero() {
		return teerrors.NewValidationError(module, "runAt", runAt, "cannot be zero")
	}
	return s.add(&scheduledTask{id: id, task: t, runAt: runAt})
}

// ScheduleAfter runs t once after delay.
func (s *Scheduler) ScheduleAfter(id string, t task.Task, delay time.Duration) error {
	return s.Schedule(id, t, time.Now().Add(delay))
}

// ScheduleRepeating runs t on the next tick and then every interval.
func (s *Scheduler) ScheduleRepeating(id string, t task.Task, interval time.Duration) error {
	return s.ScheduleRepeatingWithOptions(id, t, interval, Options{})
}

// ScheduleRepeatingWithOptions is ScheduleRepeating with run options.
func (s *Scheduler) ScheduleRepeatingWithOptions(id string, t task.Task, interval time.Duration, opts Options) error {
	if err := validateTask(id, t); err != nil {
		return err
	}
	if interval <= 0 {
		return teerrors.NewValidationError(module, "interval", interval, "must be positive")
	}
	if err := opts.validate(); err != nil {
		return err
	}
	return s.add(&scheduledTask{
		id:       id,
		task:     t,
		runAt:    time.Now(),
		interval: interval,
		opts:     opts,
	})
}

func validateTask(id string, t task.Task) error {
	if err := validation.ValidateNotEmpty(module, "id", id); err != nil {
		return err
	}
	if len(id) > maxIDLength {
		return teerrors.NewValidationError(module, "id", len(id), "too long").
			WithHint(fmt.Sprintf("use at most %d characters", maxIDLength))
	}
	if t == nil {
		return teerrors.NewValidationError(module, "task", nil, "cannot be nil")
	}
	return nil
}

func (s *Scheduler) add(st *scheduledTask) error {
	st.created = time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[st.id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateTask, st.id)
	}
	if len(s.tasks) >= s.maxTasks {
		return fmt.Errorf("%w (%d)", ErrTooManyTasks, s.maxTasks)
	}
	s.tasks[st.id] = st
	heap.Push(&s.queue, st)

	if s.registry != nil {
		s.registry.TasksScheduled.WithLabelValues(s.name).Inc()
	}
	return nil
}

// Cancel removes a scheduled task. Firings already submitted are not
// affected.
func (s *Scheduler) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.tasks[id]
	if !exists {
		return false
	}
	s.removeLocked(st)
	return true
}

// CancelAll removes all scheduled tasks.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = make(map[string]*scheduledTask)
	s.queue = nil
}

func (s *Scheduler) removeLocked(st *scheduledTask) {
	if s.tasks[st.id] != st {
		return
	}
	delete(s.tasks, st.id)
	if st.index >= 0 {
		heap.Remove(&s.queue, st.index)
	}
}

// List returns the scheduled tasks sorted by next run time.
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := make([]Task, 0, len(s.tasks))
	for _, st := range s.tasks {
		tasks = append(tasks, Task{
			ID:       st.id,
			RunAt:    st.runAt,
			Interval: st.interval,
			CronExpr: st.cronExpr,
			Runs:     st.runs,
			Created:  st.created,
		})
	}

	sort.Slice(tasks, func(i, j int) bool {
		return tasks[i].RunAt.Before(tasks[j].RunAt)
	})
	return tasks
}

// NextRun returns the next run time of a scheduled task.
func (s *Scheduler) NextRun(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, exists := s.tasks[id]
	if !exists {
		return time.Time{}, false
	}
	return st.runAt, true
}

// Start begins firing due tasks. A stopped scheduler cannot be restarted.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case stateRunning:
		return ErrAlreadyRunning
	case stateStopped:
		return teerrors.NewOperationError(module, "Start", teerrors.ErrClosed).WithContext("scheduler=" + s.name)
	}
	s.state = stateRunning

	s.wg.Add(1)
	go s.run()
	s.logger.Debug("scheduler started")
	return nil
}

// Stop stops firing tasks and cancels the run context of submitted
// firings. The returned channel is closed once the tick loop exited and,
// if the scheduler owns its pool, the pool terminated.
func (s *Scheduler) Stop() <-chan struct{} {
	s.mu.Lock()
	if s.state == stateRunning {
		close(s.done)
	}
	s.state = stateStopped
	s.mu.Unlock()
	s.cancelRun()

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		s.wg.Wait()
		if s.ownPool != nil {
			s.ownPool.Shutdown()
			_ = s.ownPool.AwaitTermination(context.Background())
		}
		s.logger.Debug("scheduler stopped")
	}()
	return stopped
}

func (s *Scheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.processReadyTasks(now)
		}
	}
}

// processReadyTasks submits every task due at now and reschedules the
// repeating ones.
func (s *Scheduler) processReadyTasks(now time.Time) {
	s.mu.Lock()
	var ready []*scheduledTask
	for len(s.queue) > 0 && !s.queue[0].runAt.After(now) {
		st := s.queue[0]
		if st.opts.SkipIfStillRunning && st.running > 0 {
			s.logger.WithField("task", st.id).Debug("skipping firing, previous run still in progress")
			s.advanceLocked(st, now)
			continue
		}
		st.runs++
		st.running++
		ready = append(ready, st)
		s.advanceLocked(st, now)
	}
	ctx := s.runCtx
	s.mu.Unlock()

	for _, st := range ready {
		s.fire(ctx, st)
	}
}

// advanceLocked moves st to its next run time, or removes it if it has none.
func (s *Scheduler) advanceLocked(st *scheduledTask, now time.Time) {
	var next time.Time
	switch {
	case st.opts.MaxRuns > 0 && st.runs >= st.opts.MaxRuns:
	case st.interval > 0:
		next = now.Add(st.interval)
	case st.schedule != nil:
		next = st.schedule.Next(now.In(st.location))
	}
	if next.IsZero() {
		s.removeLocked(st)
		return
	}
	st.runAt = next
	heap.Fix(&s.queue, st.index)
}

func (s *Scheduler) fire(ctx context.Context, st *scheduledTask) {
	if s.registry != nil {
		s.registry.TasksFired.WithLabelValues(s.name).Inc()
	}
	err := s.exec.Execute(ctx, st.task, func(canceled bool, err error) error {
		s.finished(st, canceled, err)
		return nil
	})
	if err != nil {
		s.logger.WithError(err).WithField("task", st.id).Warn("scheduled task rejected")
	}
}

func (s *Scheduler) finished(st *scheduledTask, canceled bool, err error) {
	s.mu.Lock()
	st.running--
	if err != nil && st.opts.StopOnError {
		s.removeLocked(st)
	}
	s.mu.Unlock()

	log := s.logger.WithField("task", st.id)
	switch {
	case err != nil:
		log.WithError(err).Warn("scheduled task failed")
		if st.opts.OnError != nil {
			st.opts.OnError(st.id, err)
		}
	case canceled:
		log.Debug("scheduled task canceled")
	}
}

// scheduledTask is guarded by Scheduler.mu.
type scheduledTask struct {
	id       string
	task     task.Task
	runAt    time.Time
	interval time.Duration
	cronExpr string
	schedule cron.Schedule
	location *time.Location
	opts     Options
	runs     int
	running  int
	created  time.Time
	index    int
}
