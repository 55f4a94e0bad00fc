package ta

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestUploadScheduler_CoalescesTriggers(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := newUploadScheduler(20*time.Millisecond, func() { runs.Add(1) })
	defer s.Stop()

	for i := 0; i < 10; i++ {
		s.Trigger()
		time.Sleep(time.Millisecond)
	}

	waitFor(t, time.Second, func() bool { return runs.Load() > 0 })
	time.Sleep(50 * time.Millisecond)

	if got := runs.Load(); got != 1 {
		t.Errorf("runs = %d, want 1", got)
	}
}

func TestUploadScheduler_TriggerResetsTimer(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := newUploadScheduler(30*time.Millisecond, func() { runs.Add(1) })
	defer s.Stop()

	s.Trigger()
	time.Sleep(20 * time.Millisecond)
	s.Trigger() // resets the quiet period

	// The first trigger's deadline has passed, but the reset must have
	// swallowed it.
	time.Sleep(15 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Fatalf("runs = %d before quiet period elapsed, want 0", got)
	}

	waitFor(t, time.Second, func() bool { return runs.Load() == 1 })
}

func TestUploadScheduler_TriggerDuringRunSchedulesAnother(t *testing.T) {
	t.Parallel()

	started := make(chan struct{})
	release := make(chan struct{})
	var runs atomic.Int32

	var once sync.Once
	s := newUploadScheduler(5*time.Millisecond, func() {
		if runs.Add(1) == 1 {
			once.Do(func() { close(started) })
			<-release
		}
	})
	defer s.Stop()

	s.Trigger()
	<-started

	// Mutation arrives while the first run is in flight.
	s.Trigger()
	close(release)

	waitFor(t, time.Second, func() bool { return runs.Load() == 2 })
}

func TestUploadScheduler_SingleFlight(t *testing.T) {
	t.Parallel()

	var active, maxActive atomic.Int32
	s := newUploadScheduler(time.Millisecond, func() {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		active.Add(-1)
	})
	defer s.Stop()

	for i := 0; i < 20; i++ {
		s.Trigger()
		time.Sleep(time.Millisecond)
	}

	waitFor(t, 2*time.Second, func() bool { return active.Load() == 0 })
	time.Sleep(30 * time.Millisecond)

	if got := maxActive.Load(); got > 1 {
		t.Errorf("max concurrent runs = %d, want 1", got)
	}
}

func TestUploadScheduler_StopDropsPendingTimer(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	s := newUploadScheduler(20*time.Millisecond, func() { runs.Add(1) })

	s.Trigger()
	s.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("runs = %d after Stop, want 0", got)
	}

	// Triggers after Stop are ignored.
	s.Trigger()
	time.Sleep(50 * time.Millisecond)
	if got := runs.Load(); got != 0 {
		t.Errorf("runs = %d after post-Stop trigger, want 0", got)
	}
}
