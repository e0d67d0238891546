package scheduler

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is the periodic work. It either refreshes directly or enqueues the
// background tasks that do.
type Job func(ctx context.Context) error

type Config struct {
	Enabled  bool
	Schedule string
	// Timeout bounds one run. Default: 10m
	Timeout time.Duration
}

// RefreshScheduler runs the refresh job on a cron schedule.
type RefreshScheduler struct {
	cfg Config
	job Job

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	lastRunAt  *time.Time
	lastErr    error
	cancelFunc context.CancelFunc
}

func NewRefreshScheduler(cfg Config, job Job) *RefreshScheduler {
	if cfg.Schedule == "" {
		cfg.Schedule = DefaultSchedule
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &RefreshScheduler{
		cfg:  cfg,
		job:  job,
		cron: cron.New(cron.WithParser(parser)),
	}
}

// Start begins the scheduler if refresh is enabled.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if !s.cfg.Enabled {
		log.Printf("[SYNC] Refresh scheduler: disabled")
		return nil
	}

	if err := ValidateSchedule(s.cfg.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.cfg.Schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		s.run()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh job: %w", err)
	}
	s.entryID = entryID

	var cancelCtx context.Context
	cancelCtx, s.cancelFunc = context.WithCancel(ctx)

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := NextRunTime(s.cfg.Schedule, time.Now())
	log.Printf("[SYNC] Refresh scheduler: started with schedule '%s' (%s). Next run: %v",
		s.cfg.Schedule, Describe(s.cfg.Schedule), nextRun)

	go func() {
		<-cancelCtx.Done()
		s.Stop()
	}()

	return nil
}

// Stop waits for a running job and stops the schedule.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	cancel := s.cancelFunc
	s.cancelFunc = nil
	s.cron.Remove(s.entryID)
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	if cancel != nil {
		cancel()
	}

	log.Printf("[SYNC] Refresh scheduler: stopped")
}

// RunNow triggers an immediate run in the background.
func (s *RefreshScheduler) RunNow() {
	go s.run()
}

func (s *RefreshScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing reports whether a run is in progress.
func (s *RefreshScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// NextRun returns when the next run will occur, or nil when stopped.
func (s *RefreshScheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// LastRun returns when the last run finished and its error.
func (s *RefreshScheduler) LastRun() (*time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRunAt, s.lastErr
}

func (s *RefreshScheduler) run() {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("[SYNC] Scheduled refresh: skipped (already running)")
		return
	}
	s.isSyncing = true
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	err := s.job(ctx)
	if err != nil {
		log.Printf("[SYNC] Scheduled refresh failed: %v", err)
	} else {
		log.Printf("[SYNC] Scheduled refresh done in %v", time.Since(start).Round(time.Millisecond))
	}

	finished := time.Now()
	s.mu.Lock()
	s.isSyncing = false
	s.lastRunAt = &finished
	s.lastErr = err
	s.mu.Unlock()
}
