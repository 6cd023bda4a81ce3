package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakePurger struct {
	mu    sync.Mutex
	calls int
	ttl   time.Duration
	err   error
}

func (f *fakePurger) PurgeIdle(ctx context.Context, ttl time.Duration) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.ttl = ttl
	return 1, f.err
}

func (f *fakePurger) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	// Should add a valid cron job without error
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
	if err := s.AddJob("@every 1m", func() {}); err != nil {
		t.Errorf("Expected descriptor to be accepted, got %v", err)
	}
	if err := s.AddJob("not a schedule", func() {}); err == nil {
		t.Error("Expected error for invalid expression")
	}
	s.Start()
	s.Stop()
}

func TestJanitorPurgeOnce(t *testing.T) {
	p := &fakePurger{}
	j := NewJanitor(p, 2*time.Hour)
	j.PurgeOnce(context.Background())
	if p.callCount() != 1 || p.ttl != 2*time.Hour {
		t.Errorf("unexpected purge: calls=%d ttl=%v", p.calls, p.ttl)
	}

	p.err = errors.New("db down")
	j.PurgeOnce(context.Background())
	if p.callCount() != 2 {
		t.Error("failed purge should still have been attempted")
	}
}

func TestJanitorRunStopsOnCancel(t *testing.T) {
	p := &fakePurger{}
	j := NewJanitor(p, time.Hour, WithSchedule("@every 1s"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for p.callCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if p.callCount() == 0 {
		t.Fatal("janitor never ran")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestJanitorRunRejectsBadSchedule(t *testing.T) {
	j := NewJanitor(&fakePurger{}, time.Hour, WithSchedule("bogus"))
	if err := j.Run(context.Background()); err == nil {
		t.Error("expected schedule error")
	}
}
