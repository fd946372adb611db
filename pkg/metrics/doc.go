// Package metrics provides Prometheus instrumentation for taskexec components.
//
// # Overview
//
// The metrics package provides instrumentation for:
//   - Worker pools (submissions, outcomes, cleanup failures, durations, workers, queue depth)
//   - Dispatchers such as the task scheduler and serial executor (runs, errors)
//   - Time-based scheduling (scheduled tasks, firings)
//
// # Quick Start
//
// Enable metrics through the component configuration:
//
//	pool, err := workerpool.New(workerpool.Config{
//		Name:       "requests",
//		MaxWorkers: 8,
//		Metrics:    metrics.DefaultConfig(),
//	})
//
// Then expose metrics via HTTP:
//
//	http.Handle("/metrics", promhttp.Handler())
//	log.Fatal(http.ListenAndServe(":8080", nil))
//
// # Custom Registry
//
// Use a custom Prometheus registry for isolation:
//
//	registry := prometheus.NewRegistry()
//	pool.EnableMetrics(metrics.Config{Enabled: true, Registry: registry})
//
// ForConfig caches one Registry per registerer and namespace, so any number of
// components may share a registerer.
//
// # Available Metrics
//
// ## Worker Pool Metrics
//
//   - taskexec_workerpool_tasks_submitted_total
//   - taskexec_workerpool_tasks_completed_total
//   - taskexec_workerpool_tasks_failed_total
//   - taskexec_workerpool_tasks_canceled_total
//   - taskexec_workerpool_cleanup_failures_total
//   - taskexec_workerpool_task_duration_seconds
//   - taskexec_workerpool_queue_wait_seconds
//   - taskexec_workerpool_workers_started_total
//   - taskexec_workerpool_size
//   - taskexec_workerpool_idle_workers
//   - taskexec_workerpool_queued_tasks
//   - taskexec_workerpool_executing_tasks
//
// ## Dispatch Metrics
//
//   - taskexec_dispatch_runs_total
//   - taskexec_dispatch_errors_total
//
// ## Time Scheduling Metrics
//
//   - taskexec_scheduler_tasks_scheduled_total
//   - taskexec_scheduler_tasks_fired_total
//
// # Labels
//
//   - pool_name: name of the worker pool instance
//   - dispatcher_name: name of the task scheduler or serial executor
//   - scheduler_name: name of the time scheduler instance
//
// # Runtime Control
//
// Components implementing the Instrumentable interface support runtime control:
//
//	pool.DisableMetrics()
//	pool.EnableMetrics(config)
//	enabled := pool.MetricsEnabled()
package metrics
