package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is a job the scheduler runs on every tick.
type Refresher interface {
	Refresh(ctx context.Context) error
}

type job struct {
	id        cron.EntryID
	refresher Refresher
	lastRun   time.Time
}

// Scheduler refreshes each registered entry on a fixed interval. A tick that
// arrives while the previous refresh of the same entry is still running is
// skipped.
type Scheduler struct {
	cron     *cron.Cron
	logger   *zap.Logger
	interval time.Duration
	timeout  time.Duration

	mu      sync.Mutex
	jobs    map[string]*job
	running bool
}

func NewScheduler(interval time.Duration, logger *zap.Logger) *Scheduler {
	cronLog := cronLogger{logger.Sugar()}

	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(cronLog),
			cron.SkipIfStillRunning(cronLog),
		)),
		logger:   logger,
		interval: interval,
		timeout:  60 * time.Second,
		jobs:     make(map[string]*job),
	}
}

// Add registers a refresher under entryID, replacing any previous one.
func (s *Scheduler) Add(entryID string, r Refresher) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.jobs[entryID]; ok {
		s.cron.Remove(existing.id)
		delete(s.jobs, entryID)
	}

	j := &job{refresher: r}
	id, err := s.cron.AddFunc(fmt.Sprintf("@every %s", s.interval), func() {
		s.runRefresh(entryID, j)
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", entryID, err)
	}
	j.id = id
	s.jobs[entryID] = j

	s.logger.Info("Scheduled entry refresh",
		zap.String("entry_id", entryID),
		zap.Duration("interval", s.interval))
	return nil
}

func (s *Scheduler) Remove(entryID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[entryID]
	if !ok {
		return
	}
	s.cron.Remove(j.id)
	delete(s.jobs, entryID)

	s.logger.Info("Unscheduled entry refresh", zap.String("entry_id", entryID))
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.cron.Start()

	s.logger.Info("Scheduler started",
		zap.Duration("interval", s.interval),
		zap.Int("entries", len(s.jobs)))
}

// Stop halts the ticks and waits for running refreshes to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	s.logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()

	select {
	case <-ctx.Done():
	case <-time.After(s.timeout):
		s.logger.Warn("Timed out waiting for running refreshes")
	}
}

// ForceRun triggers an out-of-band refresh of one entry.
func (s *Scheduler) ForceRun(entryID string) error {
	s.mu.Lock()
	j, ok := s.jobs[entryID]
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("entry %s is not scheduled", entryID)
	}

	s.logger.Info("Manually triggering refresh", zap.String("entry_id", entryID))
	go s.runRefresh(entryID, j)
	return nil
}

func (s *Scheduler) runRefresh(entryID string, j *job) {
	s.mu.Lock()
	j.lastRun = time.Now()
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := j.refresher.Refresh(ctx); err != nil {
		s.logger.Warn("Scheduled refresh failed",
			zap.String("entry_id", entryID),
			zap.Error(err))
	}
}

type JobStatus struct {
	LastRun time.Time `json:"last_run"`
	NextRun time.Time `json:"next_run"`
}

func (s *Scheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make(map[string]JobStatus, len(s.jobs))
	for entryID, j := range s.jobs {
		jobs[entryID] = JobStatus{
			LastRun: j.lastRun,
			NextRun: s.cron.Entry(j.id).Next,
		}
	}

	return map[string]interface{}{
		"running":  s.running,
		"interval": s.interval.String(),
		"jobs":     jobs,
	}
}

// cronLogger adapts zap to the cron.Logger interface.
type cronLogger struct {
	*zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.Errorw(msg, append(keysAndValues, "error", err)...)
}
