// Package taskscheduler provides an ordered callback queue with a
// non-reentrant dispatch loop.
//
// It lets code that holds locks defer work: schedule callbacks while locked,
// then dispatch them after releasing the locks.
//
//	s := taskscheduler.New(taskscheduler.Inline)
//
//	mu.Lock()
//	s.ScheduleTask(func() { notify(listener) })
//	mu.Unlock()
//
//	if err := s.DispatchTasks(); err != nil {
//		log.Printf("listener failed: %v", err)
//	}
//
// Callbacks run in the order they were scheduled. A callback that schedules
// and dispatches further callbacks does not run them recursively; they run
// after it returns, from the dispatch loop that was already in progress.
package taskscheduler
