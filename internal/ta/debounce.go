package ta

import (
	"sync"
	"time"
)

// uploadScheduler debounces upload triggers and enforces single-flight:
// only one upload may run at a time per service. A trigger arriving while
// the timer is pending resets the timer; a trigger arriving mid-upload sets
// a pending flag so a fresh debounce cycle starts after the in-flight run
// completes. A run that has started is never cancelled.
type uploadScheduler struct {
	interval time.Duration
	run      func()

	mu       sync.Mutex
	timer    *time.Timer
	inflight bool
	pending  bool
	stopped  bool
}

func newUploadScheduler(interval time.Duration, run func()) *uploadScheduler {
	return &uploadScheduler{interval: interval, run: run}
}

// Trigger schedules a run after the quiet period, restarting the delay if
// one is already scheduled.
func (s *uploadScheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if s.inflight {
		s.pending = true
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.interval, s.fire)
}

// fire runs on the timer goroutine when the quiet period elapses.
func (s *uploadScheduler) fire() {
	s.mu.Lock()
	if s.stopped || s.inflight {
		// A concurrent run is already active; it will pick up the pending
		// flag when it finishes.
		s.pending = s.pending || s.inflight
		s.mu.Unlock()
		return
	}
	s.inflight = true
	s.timer = nil
	s.mu.Unlock()

	s.run()

	s.mu.Lock()
	s.inflight = false
	if s.pending && !s.stopped {
		s.pending = false
		s.timer = time.AfterFunc(s.interval, s.fire)
	}
	s.mu.Unlock()
}

// Stop drops any pending timer. An in-flight run completes normally.
func (s *uploadScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
