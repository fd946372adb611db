package taskscheduler_test

import (
	"fmt"
	"sync"

	"github.com/vnykmshr/taskexec/pkg/scheduling/taskscheduler"
)

// Example demonstrates notifying listeners outside of a lock.
func Example() {
	var mu sync.Mutex
	s := taskscheduler.New(taskscheduler.Inline)

	listeners := []func(int){
		func(v int) { fmt.Println("first saw", v) },
		func(v int) { fmt.Println("second saw", v) },
	}

	mu.Lock()
	value := 42
	for _, l := range listeners {
		l := l
		s.ScheduleTask(func() { l(value) })
	}
	mu.Unlock()

	if err := s.DispatchTasks(); err != nil {
		fmt.Println("dispatch failed:", err)
	}

	// Output:
	// first saw 42
	// second saw 42
}
