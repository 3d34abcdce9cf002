package calsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "notedesk/internal/log"
)

// Runner is what the scheduler triggers.
type Runner interface {
	SyncAll(ctx context.Context) error
}

// Scheduler runs SyncAll on a cron spec. Overlapping runs are skipped.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	timeout time.Duration

	mu      sync.Mutex
	running bool
}

// NewScheduler parses spec (standard five-field cron, or descriptors such
// as "@every 15m") in loc.
func NewScheduler(spec string, loc *time.Location, runner Runner, timeout time.Duration) (*Scheduler, error) {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		runner:  runner,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.RunOnce); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule and waits for a running sync to return.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// RunOnce performs one sync unless another one is in progress.
func (s *Scheduler) RunOnce() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		appLog.Debug("calendar sync already running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.runner.SyncAll(ctx); err != nil {
		appLog.Error("scheduled calendar sync finished with errors", err, "elapsed", time.Since(start).String())
		return
	}
	appLog.Info("scheduled calendar sync done", "elapsed", time.Since(start).String())
}
