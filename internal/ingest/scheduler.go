package ingest

import (
	"context"
	"log"
	"time"
)

// DefaultInterval is the collection cadence, matching roughly one hour of
// lookback blocks.
const DefaultInterval = time.Hour

// Scheduler runs SyncAll on a fixed cadence until its context is canceled.
type Scheduler struct {
	collector   *Collector
	snapshotter *Snapshotter
	interval    time.Duration
	logger      *log.Logger
}

// NewScheduler builds a scheduler. interval <= 0 selects DefaultInterval.
func NewScheduler(c *Collector, interval time.Duration, logger *log.Logger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scheduler{collector: c, interval: interval, logger: logger}
}

// WithSnapshotter also records a pool snapshot on every cycle.
func (s *Scheduler) WithSnapshotter(sn *Snapshotter) *Scheduler {
	s.snapshotter = sn
	return s
}

// Run performs one sync immediately, then one per tick. Sync failures are
// logged and the loop keeps going. Returns the context's error on cancel.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Printf("collector daemon started, interval %s", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Printf("collector daemon stopping: %v", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if _, err := s.collector.SyncAll(ctx); err != nil {
		s.logger.Printf("sync all: %v", err)
	}
	if s.snapshotter != nil {
		if err := s.snapshotter.SnapshotAll(ctx); err != nil {
			s.logger.Printf("snapshot all: %v", err)
		}
	}
}
