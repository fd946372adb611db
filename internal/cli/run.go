package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vnykmshr/taskexec/pkg/scheduling/serial"
	"github.com/vnykmshr/taskexec/pkg/scheduling/workerpool"
	"github.com/vnykmshr/taskexec/pkg/task"
)

type runOptions struct {
	pool         string
	workers      int
	queue        int
	idleTimeout  time.Duration
	tasks        int
	taskDuration time.Duration
	failEvery    int
	serial       bool
	listen       string
	timeout      time.Duration
}

// runStats counts task outcomes as reported to cleanups.
type runStats struct {
	completed atomic.Int64
	failed    atomic.Int64
	canceled  atomic.Int64
}

func (s *runStats) cleanup(canceled bool, err error) error {
	switch {
	case canceled:
		s.canceled.Add(1)
	case err != nil:
		s.failed.Add(1)
	default:
		s.completed.Add(1)
	}
	return nil
}

var errSimulated = errors.New("simulated failure")

func newRunCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a synthetic workload on a worker pool",
		Long: `Run submits a number of synthetic tasks to a worker pool and reports how
many completed, failed or were canceled. The pool comes from the
configuration (--pool) or the configured defaults, overridden by flags.`,
		Example: `  taskexec run --tasks 1000 --workers 8 --queue 100
  taskexec run --pool io --task-duration 5ms --fail-every 10
  taskexec run --serial --metrics-listen :9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.pool, "pool", "", "named pool from the configuration")
	f.IntVarP(&opts.workers, "workers", "w", 0, "maximum number of workers")
	f.IntVarP(&opts.queue, "queue", "q", 0, "queue capacity (0 = unbounded)")
	f.DurationVar(&opts.idleTimeout, "idle-timeout", 0, "worker idle timeout")
	f.IntVarP(&opts.tasks, "tasks", "n", 100, "number of tasks to submit")
	f.DurationVar(&opts.taskDuration, "task-duration", time.Millisecond, "time each task sleeps")
	f.IntVar(&opts.failEvery, "fail-every", 0, "make every Nth task fail (0 = never)")
	f.BoolVar(&opts.serial, "serial", false, "run tasks one at a time in submission order")
	f.StringVar(&opts.listen, "metrics-listen", "", "serve Prometheus metrics on this address while running")
	f.DurationVar(&opts.timeout, "timeout", 0, "cancel the workload after this long (0 = no limit)")

	return cmd
}

// poolConfig resolves the pool configuration from the config file and flags.
func (a *app) poolConfig(cmd *cobra.Command, opts *runOptions) (workerpool.Config, bool, error) {
	cfg := a.config
	name := opts.pool
	var pc workerpool.Config
	serialPool := opts.serial

	if name != "" {
		var ok bool
		pc, ok = cfg.Pool(name)
		if !ok {
			return pc, false, fmt.Errorf("pool %q not found in configuration", name)
		}
		serialPool = serialPool || cfg.Pools[name].Serial || cfg.Defaults.Serial
	} else {
		pc = workerpool.Config{
			Name:         "run",
			MaxWorkers:   cfg.Defaults.MaxWorkers,
			MaxQueueSize: cfg.Defaults.MaxQueueSize,
			IdleTimeout:  cfg.Defaults.IdleTimeout,
			Metrics:      cfg.MetricsConfig(),
		}
		serialPool = serialPool || cfg.Defaults.Serial
	}

	flags := cmd.Flags()
	if flags.Changed("workers") {
		pc.MaxWorkers = opts.workers
	}
	if flags.Changed("queue") {
		pc.MaxQueueSize = opts.queue
	}
	if pc.MaxQueueSize == 0 {
		pc.MaxQueueSize = workerpool.UnboundedQueue
	}
	if flags.Changed("idle-timeout") {
		pc.IdleTimeout = opts.idleTimeout
	}
	return pc, serialPool, nil
}

func (a *app) run(cmd *cobra.Command, opts *runOptions) error {
	if opts.tasks < 0 {
		return fmt.Errorf("--tasks must not be negative")
	}
	pc, serialPool, err := a.poolConfig(cmd, opts)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	// A private registry keeps repeated runs in one process independent.
	reg := prometheus.NewRegistry()
	if opts.listen != "" {
		pc.Metrics.Enabled = true
	}
	pc.Metrics.Registry = reg
	pc.Logger = a.logger

	if opts.listen != "" {
		_, stop, err := serveMetrics(opts.listen, reg, a.logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	pool, err := workerpool.New(pc)
	if err != nil {
		return err
	}
	var exec task.Executor = pool
	if serialPool {
		exec = serial.New(pool, serial.WithName(pc.Name), serial.WithLogger(a.logger), serial.WithMetrics(pc.Metrics))
	}

	log := a.logger.WithFields(logrus.Fields{
		"pool":    pc.Name,
		"workers": pc.MaxWorkers,
		"serial":  serialPool,
	})
	log.WithField("tasks", opts.tasks).Info("starting workload")

	stats := &runStats{}
	start := time.Now()
	submitted := 0
	for i := 1; i <= opts.tasks; i++ {
		if ctx.Err() != nil {
			break
		}
		if err := exec.Execute(ctx, syntheticTask(i, opts), stats.cleanup); err != nil {
			log.WithError(err).Warn("task rejected")
		}
		submitted++
	}

	pool.Shutdown()
	if err := pool.AwaitTermination(ctx); err != nil {
		log.Warn("workload interrupted, canceling remaining tasks")
		pool.ShutdownAndCancel()
		_ = pool.AwaitTermination(context.Background())
	}
	elapsed := time.Since(start)

	out := cmd.OutOrStdout()
	colors := newColorScheme(out, a.noColor)
	fmt.Fprintf(out, "submitted=%d completed=%s failed=%s canceled=%s elapsed=%s\n",
		submitted,
		colors.Success("%d", stats.completed.Load()),
		colors.Error("%d", stats.failed.Load()),
		colors.Warning("%d", stats.canceled.Load()),
		colors.Duration("%s", elapsed.Round(time.Millisecond)))
	if elapsed > 0 && submitted > 0 {
		fmt.Fprintf(out, "throughput=%.1f tasks/s\n", float64(submitted)/elapsed.Seconds())
	}
	return nil
}

func syntheticTask(i int, opts *runOptions) task.Task {
	return func(ctx context.Context) error {
		if opts.taskDuration > 0 {
			timer := time.NewTimer(opts.taskDuration)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		if opts.failEvery > 0 && i%opts.failEvery == 0 {
			return fmt.Errorf("task %d: %w", i, errSimulated)
		}
		return nil
	}
}

// serveMetrics serves reg on addr until the returned function is called.
// It returns the address actually listened on.
func serveMetrics(addr string, reg *prometheus.Registry, logger logrus.FieldLogger) (string, func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("metrics server failed")
		}
	}()
	logger.WithField("addr", ln.Addr().String()).Info("serving metrics")

	return ln.Addr().String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		<-done
	}, nil
}
