package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrSnakeDoc/dashsync/internal/logger"
)

// DefaultSnapshotInterval is the period of the full disaster-recovery snapshot.
const DefaultSnapshotInterval = 30 * time.Second

// Snapshotter writes one full snapshot.
type Snapshotter interface {
	Snapshot(ctx context.Context) error
}

// SnapshotScheduler writes a full snapshot on a fixed period, independent of
// per-collection persistence, and one last time when stopped.
type SnapshotScheduler struct {
	target   Snapshotter
	logger   logger.Logger
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
}

// NewSnapshotScheduler creates a scheduler. interval <= 0 uses DefaultSnapshotInterval.
func NewSnapshotScheduler(target Snapshotter, log logger.Logger, interval time.Duration) *SnapshotScheduler {
	if interval <= 0 {
		interval = DefaultSnapshotInterval
	}
	return &SnapshotScheduler{
		target:   target,
		logger:   log.Named("snapshot"),
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins the periodic snapshots.
func (s *SnapshotScheduler) Start(ctx context.Context) {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	ticker := time.NewTicker(s.interval)
	go func() {
		defer close(s.done)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.run(ctx)
			case <-s.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	s.logger.Info("snapshot scheduler started", logger.Duration("interval", s.interval))
}

// Stop ends the ticker and writes a final snapshot before returning.
// It is safe to call more than once; only the first call snapshots.
func (s *SnapshotScheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		close(s.stopCh)
		if s.started.Load() {
			<-s.done
		}
		err = s.target.Snapshot(ctx)
		if err != nil {
			s.logger.Error("final snapshot failed", logger.Error(err))
			return
		}
		s.logger.Info("final snapshot written")
	})
	return err
}

func (s *SnapshotScheduler) run(ctx context.Context) {
	if err := s.target.Snapshot(ctx); err != nil {
		s.logger.Warn("periodic snapshot failed", logger.Error(err))
	}
}
