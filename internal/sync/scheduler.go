package sync

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Scheduled passes look one week back and fetch at most one bounded page.
const (
	scheduledLookback   = 7 * 24 * time.Hour
	scheduledBatchLimit = 200
)

// Syncer runs one reconciliation pass.
type Syncer interface {
	Sync(ctx context.Context, opts Options) Result
}

// Scheduler invokes the engine on a fixed interval. A failed pass is logged
// and the timer keeps firing; overlapping with a manual pass is tolerated
// because the store upsert is atomic per external id.
type Scheduler struct {
	engine           Syncer
	interval         time.Duration
	shutdownComplete chan struct{}
}

// NewScheduler constructs a Scheduler.
func NewScheduler(engine Syncer, interval time.Duration) *Scheduler {
	return &Scheduler{
		engine:           engine,
		interval:         interval,
		shutdownComplete: make(chan struct{}),
	}
}

// Start launches the timer loop. It should be called in a goroutine.
func (s *Scheduler) Start(ctx context.Context) {
	logrus.WithField("interval", s.interval).Info("scheduler: started")

	ticker := time.NewTicker(s.interval)
	defer func() {
		ticker.Stop()
		close(s.shutdownComplete)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		s.runOnce(ctx)
	}
}

// Wait blocks until the scheduler loop has stopped.
func (s *Scheduler) Wait() {
	<-s.shutdownComplete
}

func (s *Scheduler) runOnce(ctx context.Context) {
	logrus.Info("scheduler: starting scheduled activity sync")

	oldest := time.Now().UTC().Add(-scheduledLookback)
	result := s.engine.Sync(ctx, Options{Oldest: &oldest, Limit: scheduledBatchLimit})

	entry := logrus.WithFields(logrus.Fields{
		"status":    result.Status,
		"synced":    result.ActivitiesSynced,
		"updated":   result.ActivitiesUpdated,
		"processed": result.TotalProcessed,
	})
	if result.Status == StatusError {
		entry.WithField("message", result.Message).Error("scheduler: scheduled sync failed")
		return
	}
	entry.Info("scheduler: scheduled sync completed")
}
