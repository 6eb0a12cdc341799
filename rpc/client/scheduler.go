package client

import (
	"sync"
	"time"
)

// Scheduler runs the periodic background work of one client instance:
// the pool maintenance sweep, reconnect backoff timers, heartbeat ticks and
// the request timeout sweep all share it. Tasks run on background goroutines
// and never propagate panics into the runtime.
type Scheduler struct {
	mu      sync.Mutex
	stopped bool
}

// NewScheduler creates an empty scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Every runs task at a fixed rate until the returned cancel function is
// called. Scheduling on a stopped scheduler is a no-op.
func (s *Scheduler) Every(interval time.Duration, task func()) (cancel func()) {
	stopCh := make(chan struct{})
	var once sync.Once
	cancel = func() { once.Do(func() { close(stopCh) }) }

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return cancel
	}
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.run(task)
			}
		}
	}()

	return cancel
}

// After runs task once after the given delay unless the returned cancel
// function is called first. Scheduling on a stopped scheduler is a no-op.
func (s *Scheduler) After(delay time.Duration, task func()) (cancel func()) {
	stopCh := make(chan struct{})
	var once sync.Once
	cancel = func() { once.Do(func() { close(stopCh) }) }

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return cancel
	}
	s.mu.Unlock()

	go func() {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-stopCh:
		case <-timer.C:
			s.run(task)
		}
	}()

	return cancel
}

// Stop prevents new tasks from being scheduled. Running tasks are stopped by
// their owners via the cancel functions.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// run executes one task invocation. A panicking task must not take the
// scheduler goroutine down with it.
func (s *Scheduler) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			Logger.Errorf("background task panicked: %v", r)
		}
	}()

	task()
}
