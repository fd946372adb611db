package workerpool

import (
	"container/list"
	"context"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/vnykmshr/taskexec/pkg/common/oneshot"
	"github.com/vnykmshr/taskexec/pkg/common/validation"
	"github.com/vnykmshr/taskexec/pkg/metrics"
	"github.com/vnykmshr/taskexec/pkg/task"
)

const module = "workerpool"

// UnboundedQueue can be used as MaxQueueSize when admission should never block.
const UnboundedQueue = math.MaxInt32

// WorkerStarter starts the goroutine that runs a worker loop.
// If Start returns an error it must not have called run.
type WorkerStarter interface {
	Start(run func()) error
}

// StarterFunc is a function type that implements WorkerStarter.
type StarterFunc func(run func()) error

// Start implements WorkerStarter.
func (f StarterFunc) Start(run func()) error {
	return f(run)
}

// GoStarter runs each worker on a new goroutine.
var GoStarter WorkerStarter = StarterFunc(func(run func()) error {
	go run()
	return nil
})

// State is the lifecycle state of a Pool. It never decreases.
type State int32

const (
	// Running accepts and executes tasks.
	Running State = iota
	// ShuttingDown rejects new tasks and drains the queue.
	ShuttingDown
	// Terminating skips every task not yet started, running only cleanups.
	Terminating
	// Terminated means no task is queued or executing and no worker is active.
	Terminated
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting_down"
	case Terminating:
		return "terminating"
	case Terminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Config holds configuration options for creating a worker pool.
type Config struct {
	// Name identifies the pool in logs and metrics.
	Name string

	// MaxWorkers is the maximum number of live workers. Must be greater than 0.
	MaxWorkers int

	// MaxQueueSize is the maximum number of queued tasks. Submitters block
	// while the queue is full and no worker can be started.
	// Must be greater than 0.
	MaxQueueSize int

	// IdleTimeout is how long a worker waits for a task before exiting.
	// Zero makes workers exit as soon as the queue is empty.
	IdleTimeout time.Duration

	// Starter starts worker goroutines. If nil, GoStarter is used.
	Starter WorkerStarter

	// Logger receives pool diagnostics. If nil, logrus.StandardLogger() is used.
	Logger logrus.FieldLogger

	// Metrics configures Prometheus instrumentation. Disabled by default.
	Metrics metrics.Config
}

// DefaultConfig returns a configuration with one worker per CPU, an
// unbounded queue and a five second idle timeout.
func DefaultConfig() Config {
	return Config{
		Name:         "default",
		MaxWorkers:   runtime.NumCPU(),
		MaxQueueSize: UnboundedQueue,
		IdleTimeout:  5 * time.Second,
	}
}

// Validate reports the first invalid field of c.
func (c Config) Validate() error {
	if err := validation.ValidatePositive(module, "MaxWorkers", c.MaxWorkers); err != nil {
		return err
	}
	if err := validation.ValidatePositive(module, "MaxQueueSize", c.MaxQueueSize); err != nil {
		return err
	}
	return validation.ValidateNonNegativeDuration(module, "IdleTimeout", c.IdleTimeout)
}

// Pool is a bounded executor. Workers are started lazily up to MaxWorkers
// and exit after IdleTimeout without work. Tasks beyond the running workers
// wait in a FIFO queue of at most MaxQueueSize items.
//
// Every submitted task's cleanup runs exactly once, whether the task ran,
// failed, panicked, was canceled, or was rejected because the pool was shut
// down.
type Pool struct {
	name   string
	logger logrus.FieldLogger

	mu           sync.Mutex
	maxWorkers   int
	maxQueueSize int
	idleTimeout  time.Duration
	starter      WorkerStarter
	queue        *list.List
	notEmpty     *signal
	notFull      *signal
	state        State

	// runningWorkers counts live worker goroutines; activeWorkers those
	// that have not yet decided to exit.
	runningWorkers int
	activeWorkers  int
	idleWorkers    int
	executing      int
	// pendingCleanups counts cleanups in flight outside of workers, run by
	// cancellation listeners or by submitters still inside Execute.
	pendingCleanups int

	shutdownCtx    context.Context
	cancelShutdown context.CancelCauseFunc
	terminated     *oneshot.Listeners

	instruments  atomic.Pointer[instruments]
	nextWorkerID atomic.Int64
}

var (
	_ task.Executor          = (*Pool)(nil)
	_ task.ExecutorService   = (*Pool)(nil)
	_ task.Monitor           = (*Pool)(nil)
	_ metrics.Instrumentable = (*Pool)(nil)
)

// New creates a worker pool with the given configuration. No worker is
// started until the first task is submitted.
func New(config Config) (*Pool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if config.Name == "" {
		config.Name = "default"
	}
	if config.Starter == nil {
		config.Starter = GoStarter
	}
	if config.Logger == nil {
		config.Logger = logrus.StandardLogger()
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	p := &Pool{
		name:           config.Name,
		logger:         config.Logger.WithField("pool", config.Name),
		maxWorkers:     config.MaxWorkers,
		maxQueueSize:   config.MaxQueueSize,
		idleTimeout:    config.IdleTimeout,
		starter:        config.Starter,
		queue:          list.New(),
		notEmpty:       newSignal(),
		notFull:        newSignal(),
		shutdownCtx:    ctx,
		cancelShutdown: cancel,
		terminated:     oneshot.New(),
	}
	if config.Metrics.Enabled {
		if err := p.EnableMetrics(config.Metrics); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewSingleThread creates a pool with exactly one worker. Tasks run one at
// a time in submission order.
func NewSingleThread(name string, maxQueueSize int, idleTimeout time.Duration) (*Pool, error) {
	return New(Config{
		Name:         name,
		MaxWorkers:   1,
		MaxQueueSize: maxQueueSize,
		IdleTimeout:  idleTimeout,
	})
}

// Name returns the pool name.
func (p *Pool) Name() string {
	return p.name
}

// MaxWorkers returns the current worker limit.
func (p *Pool) MaxWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxWorkers
}

// SetMaxWorkers changes the worker limit. Lowering it does not interrupt
// running tasks; surplus workers exit after their current task. Raising it lets blocked
// submitters start new workers.
func (p *Pool) SetMaxWorkers(n int) error {
	if err := validation.ValidatePositive(module, "MaxWorkers", n); err != nil {
		return err
	}
	p.mu.Lock()
	p.maxWorkers = n
	p.notFull.broadcast()
	p.mu.Unlock()
	return nil
}

// MaxQueueSize returns the current queue limit.
func (p *Pool) MaxQueueSize() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.maxQueueSize
}

// SetMaxQueueSize changes the queue limit. Items already queued beyond a
// lowered limit stay queued; admission blocks until the queue drains below it.
func (p *Pool) SetMaxQueueSize(n int) error {
	if err := validation.ValidatePositive(module, "MaxQueueSize", n); err != nil {
		return err
	}
	p.mu.Lock()
	p.maxQueueSize = n
	p.notFull.broadcast()
	p.mu.Unlock()
	return nil
}

// IdleTimeout returns the current idle timeout.
func (p *Pool) IdleTimeout() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleTimeout
}

// SetIdleTimeout changes the idle timeout. Workers already waiting have
// their remaining wait shifted by the difference.
func (p *Pool) SetIdleTimeout(d time.Duration) error {
	if err := validation.ValidateNonNegativeDuration(module, "IdleTimeout", d); err != nil {
		return err
	}
	p.mu.Lock()
	p.idleTimeout = d
	p.notEmpty.broadcast()
	p.mu.Unlock()
	return nil
}

// SetWorkerStarter replaces the starter used for workers started from now on.
// A nil starter restores GoStarter.
func (p *Pool) SetWorkerStarter(s WorkerStarter) {
	if s == nil {
		s = GoStarter
	}
	p.mu.Lock()
	p.starter = s
	p.mu.Unlock()
}

// NumberOfQueuedTasks returns the number of tasks waiting for a worker.
// The value is advisory only.
func (p *Pool) NumberOfQueuedTasks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.Len()
}

// NumberOfExecutingTasks returns the number of tasks a worker has taken
// and not yet finished, cleanup included. The value is advisory only.
func (p *Pool) NumberOfExecutingTasks() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.executing
}

// NumberOfWorkers returns the number of live workers.
func (p *Pool) NumberOfWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.runningWorkers
}

// NumberOfIdleWorkers returns the number of workers waiting for a task.
func (p *Pool) NumberOfIdleWorkers() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idleWorkers
}

type executingKey struct{}

// IsExecutingInThis reports whether ctx is, or derives from, the context a
// task of this pool was started with.
func (p *Pool) IsExecutingInThis(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(executingKey{}).(*Pool)
	return owner == p
}
