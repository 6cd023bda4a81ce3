// Package scheduler runs periodic maintenance jobs for SGGuide, such as
// purging sessions that have gone idle.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultPurgeSpec runs the idle-session purge every five minutes.
const DefaultPurgeSpec = "*/5 * * * *"

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a cron scheduler. Jobs run once Start is called.
func NewScheduler() *Scheduler {
	// standard 5-field parser (min, hour, dom, month, dow), panics recovered
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	if _, err := s.cron.AddFunc(expr, task); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", expr, err)
	}
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Purger removes sessions idle for longer than ttl.
type Purger interface {
	PurgeIdle(ctx context.Context, ttl time.Duration) (int, error)
}

// Janitor periodically purges idle sessions.
type Janitor struct {
	purger  Purger
	ttl     time.Duration
	spec    string
	timeout time.Duration
}

// JanitorOption configures a Janitor.
type JanitorOption func(*Janitor)

// WithSchedule overrides DefaultPurgeSpec.
func WithSchedule(spec string) JanitorOption {
	return func(j *Janitor) { j.spec = spec }
}

// WithPurgeTimeout bounds a single purge run.
func WithPurgeTimeout(d time.Duration) JanitorOption {
	return func(j *Janitor) { j.timeout = d }
}

// NewJanitor creates a Janitor that deletes sessions idle for ttl.
func NewJanitor(p Purger, ttl time.Duration, opts ...JanitorOption) *Janitor {
	j := &Janitor{purger: p, ttl: ttl, spec: DefaultPurgeSpec, timeout: 30 * time.Second}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// PurgeOnce runs a single purge.
func (j *Janitor) PurgeOnce(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()
	n, err := j.purger.PurgeIdle(ctx, j.ttl)
	if err != nil {
		slog.Error("Janitor.PurgeOnce: purge failed", "error", err)
		return
	}
	slog.Debug("Janitor.PurgeOnce: purge complete", "removed", n, "ttl", j.ttl)
}

// Run purges on schedule until ctx is cancelled.
func (j *Janitor) Run(ctx context.Context) error {
	s := NewScheduler()
	if err := s.AddJob(j.spec, func() { j.PurgeOnce(ctx) }); err != nil {
		return err
	}
	slog.Info("Janitor started", "schedule", j.spec, "ttl", j.ttl)
	s.Start()
	<-ctx.Done()
	s.Stop()
	slog.Info("Janitor stopped")
	return nil
}
