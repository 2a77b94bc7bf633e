// ABOUTME: Scheduled housekeeping for long-running mcoder processes
// ABOUTME: Prunes the generation cache on a cron schedule
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// CachePruner removes cache entries older than maxAge and reports how many went
type CachePruner interface {
	CachePrune(maxAge time.Duration) (int64, error)
}

// Scheduler runs cache pruning on a cron spec such as "@daily" or "0 3 * * *"
type Scheduler struct {
	cron     *cron.Cron
	store    CachePruner
	maxAge   time.Duration
	logger   *slog.Logger
	onPruned func(n int64)
}

// NewScheduler validates spec and registers the prune job. The scheduler is idle
// until Start is called.
func NewScheduler(store CachePruner, spec string, maxAge time.Duration, logger *slog.Logger) (*Scheduler, error) {
	if maxAge <= 0 {
		return nil, fmt.Errorf("cache max age must be positive, got %v", maxAge)
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Scheduler{
		cron:   cron.New(),
		store:  store,
		maxAge: maxAge,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.pruneJob); err != nil {
		return nil, fmt.Errorf("invalid prune schedule %q: %w", spec, err)
	}
	return s, nil
}

// OnPruned registers fn to receive the count of each successful prune
func (s *Scheduler) OnPruned(fn func(n int64)) {
	s.onPruned = fn
}

// Start runs the schedule in the background until ctx is done
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

// Stop halts the schedule and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// PruneNow runs one prune pass synchronously
func (s *Scheduler) PruneNow() (int64, error) {
	n, err := s.store.CachePrune(s.maxAge)
	if err != nil {
		return 0, err
	}
	if s.onPruned != nil {
		s.onPruned(n)
	}
	return n, nil
}

func (s *Scheduler) pruneJob() {
	n, err := s.PruneNow()
	if err != nil {
		s.logger.Error("cache prune failed", "err", err)
		return
	}
	s.logger.Info("cache pruned", "removed", n, "max_age", s.maxAge)
}
