package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/driftfeed/driftfeed/app/database"
	"github.com/driftfeed/driftfeed/app/reputation"
)

const (
	maintenanceInterval        = 24 * time.Hour
	reputationWindowDays       = 7
	consistencyCheckBatchLimit = 100
)

// Scheduler drives the acquisition engine on a fixed tick. Due sources are
// processed sequentially, one crawl at a time; a slow source delays the rest
// of the tick, by design of the single-crawler deployment model.
type Scheduler struct {
	engine      *Engine
	sourceRepo  database.SourceRepository
	jobRepo     database.CrawlJobRepository
	contentRepo database.ContentRepository
	reputations *reputation.Manager
	interval    time.Duration

	ctx             context.Context
	cancel          context.CancelFunc
	wg              sync.WaitGroup
	lastMaintenance time.Time
}

func NewScheduler(engine *Engine, sourceRepo database.SourceRepository,
	jobRepo database.CrawlJobRepository, contentRepo database.ContentRepository,
	reputations *reputation.Manager, interval time.Duration) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		engine:      engine,
		sourceRepo:  sourceRepo,
		jobRepo:     jobRepo,
		contentRepo: contentRepo,
		reputations: reputations,
		interval:    interval,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start recovers orphaned jobs left by a previous process, then begins
// ticking. Tick errors are logged and never stop the loop.
func (s *Scheduler) Start() {
	orphaned, err := s.jobRepo.FailOrphanedJobs()
	if err != nil {
		slog.Error("Failed to recover orphaned crawl jobs", "error", err)
	} else if orphaned > 0 {
		slog.Warn("Recovered orphaned crawl jobs from previous run", "count", orphaned)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.tick()

		for {
			select {
			case <-s.ctx.Done():
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()

	slog.Info("Crawl scheduler started", "interval", s.interval.String())
}

func (s *Scheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	slog.Info("Crawl scheduler stopped")
}

func (s *Scheduler) tick() {
	due, err := s.sourceRepo.GetSourcesDueForCrawl(time.Now().UTC())
	if err != nil {
		slog.Error("Failed to query due sources", "error", err)
		return
	}

	if len(due) > 0 {
		slog.Debug("Sources due for crawling", "count", len(due))
	}

	for i := range due {
		if s.ctx.Err() != nil {
			return
		}

		source := &due[i]
		_, err := s.engine.Crawl(s.ctx, source)
		switch {
		case errors.Is(err, ErrSourceRunning):
			slog.Debug("Source crawl already running, skipping", "source", source.Name)
		case errors.Is(err, ErrConcurrencyExceeded):
			slog.Warn("Crawl concurrency ceiling reached, deferring source", "source", source.Name)
		case err != nil:
			slog.Error("Source crawl failed to start", "source", source.Name, "error", err)
		}
	}

	s.maybeRunMaintenance()
}

// maybeRunMaintenance runs the daily background work: domain reputation
// recompute over recently active domains, and topic consistency repair.
func (s *Scheduler) maybeRunMaintenance() {
	if time.Since(s.lastMaintenance) < maintenanceInterval {
		return
	}
	s.lastMaintenance = time.Now()

	if s.reputations != nil {
		if _, err := s.reputations.UpdateAll(reputationWindowDays); err != nil {
			slog.Error("Reputation batch update failed", "error", err)
		}
	}

	ids, err := s.contentRepo.VerifyTopicConsistency(consistencyCheckBatchLimit)
	if err != nil {
		slog.Error("Topic consistency check failed", "error", err)
		return
	}
	for _, id := range ids {
		if err := s.contentRepo.RepairTopicConsistency(id); err != nil {
			slog.Error("Topic consistency repair failed", "content_id", id, "error", err)
		}
	}
	if len(ids) > 0 {
		slog.Warn("Repaired diverged topic denormalization", "count", len(ids))
	}
}
