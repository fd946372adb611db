// Package serial provides an executor that runs tasks one at a time, in
// submission order, on top of any other executor.
//
// The underlying executor may be multi-threaded; tasks still never overlap,
// although consecutive tasks may run on different goroutines:
//
//	pool, _ := workerpool.New(workerpool.Config{MaxWorkers: 8, MaxQueueSize: 100})
//	events := serial.New(pool, serial.WithName("events"))
//
//	events.Execute(ctx, handleFirst, nil)
//	events.Execute(ctx, handleSecond, nil) // starts after handleFirst and its cleanup
//
// Task N+1 starts only once task N and its cleanup returned. A task that
// submits to the executor it runs on is not run recursively; the new task is
// queued behind it.
package serial
