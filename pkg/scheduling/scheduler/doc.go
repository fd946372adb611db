/*
Package scheduler submits tasks to an executor at given times, at fixed
intervals or following cron expressions.

Basic Usage:

	s, err := scheduler.NewWithConfig(scheduler.Config{Executor: pool})
	if err != nil {
		return err
	}
	defer func() { <-s.Stop() }()
	s.Start()

	s.ScheduleAfter("warmup", warmCaches, 5*time.Second)
	s.ScheduleRepeating("flush", flushMetrics, 30*time.Second)
	s.ScheduleCron("report", "0 9 * * 1-5", sendReport)

Any task.Executor can run the firings: a workerpool.Pool, a serial.Executor
or task.DirectExecutor. Without one, the scheduler owns a small pool and
shuts it down on Stop.

Cron Expressions:

Expressions are parsed with github.com/robfig/cron/v3. Five fields are the
standard format, a sixth leading field adds seconds, and descriptors such
as "@hourly" or "@every 90s" are accepted. Cron tasks are evaluated in
Config.Location unless CronOptions.Location overrides it.

Firings:

Due tasks are looked for every TickInterval. Each firing is submitted with
the scheduler's run context, which Stop cancels, and a cleanup that logs
failed firings. Options bound the number of runs, skip overlapping runs,
or remove a task after its first failure.
*/
package scheduler
