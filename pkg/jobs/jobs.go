// Package jobs runs the background maintenance schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/meshwork-app/meshwork-api/pkg/config"
	"github.com/meshwork-app/meshwork-api/pkg/observability"
	"github.com/meshwork-app/meshwork-api/pkg/store"
)

// Scheduler owns the cron runner and the registered jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger *observability.Logger
}

// New builds the schedule. Currently one job: pruning stale connection rows.
func New(cfg config.JobsConfig, stores *store.Stores, logger *observability.Logger) (*Scheduler, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.PruneSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		pruned, err := stores.Connections.PruneStale(ctx, cfg.ConnectionMaxAge)
		if err != nil {
			logger.WithError(err).Error("connection prune failed")
			return
		}
		observability.ConnectionsPruned.Add(float64(pruned))
		if pruned > 0 {
			logger.WithField("pruned", pruned).Info("pruned stale connections")
		}
	})
	if err != nil {
		return nil, err
	}

	return &Scheduler{cron: c, logger: logger}, nil
}

// Start launches the schedule in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("job scheduler started")
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("job scheduler stopped")
}
