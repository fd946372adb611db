/*
Package scheduling provides task execution primitives built on the
executor contract of package task.

  - workerpool: Bounded worker pool with a bounded queue
  - taskscheduler: Queue of tasks dispatched through a caller-supplied dispatcher
  - serial: Serializing executor layered on any other executor
  - scheduler: Time-based task scheduling and cron-like functionality

Worker Pool:

	pool, err := workerpool.New(workerpool.Config{
		MaxWorkers:   4,
		MaxQueueSize: 100,
		IdleTimeout:  time.Minute,
	})
	defer pool.ShutdownAndCancel()

	f, err := task.Submit[int](pool, ctx, func(ctx context.Context) (int, error) {
		return 42, nil
	}, nil)
	v, err := f.Get(ctx)

Serial Executor:

	events := serial.New(pool, serial.WithName("events"))
	events.Execute(ctx, first, nil)
	events.Execute(ctx, second, nil) // starts after first and its cleanup

Task Scheduler:

	sched, err := scheduler.NewWithConfig(scheduler.Config{Executor: pool})
	sched.Start()
	defer sched.Stop()

	sched.ScheduleAfter("warmup", task, time.Minute)
	sched.ScheduleRepeating("flush", task, time.Hour)
	sched.ScheduleCron("report", "0 9 * * MON-FRI", task) // Weekdays at 9 AM

All components are safe for concurrent use and honor context cancellation.
*/
package scheduling
