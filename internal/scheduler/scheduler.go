// Package scheduler handles cron-like scheduling for recording maintenance.
package scheduler

import (
	"context"

	"github.com/flc1125/go-cron/middleware/recovery/v4"
	cron "github.com/flc1125/go-cron/v4"
	"github.com/rmeijer/screenrec/internal/config"
	"github.com/rmeijer/screenrec/internal/logger"
	"github.com/rmeijer/screenrec/internal/store"
)

// Scheduler runs periodic maintenance over the recordings directory:
// retention cleanup and sweeping of orphaned in-progress files.
type Scheduler struct {
	config *config.Config
	store  *store.Store
	log    *logger.Logger
	cron   *cron.Cron
	cancel context.CancelFunc
}

// New creates a new scheduler.
func New(cfg *config.Config, st *store.Store, log *logger.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	c := cron.New(
		cron.WithContext(ctx),
		cron.WithMiddleware(
			recovery.New(), // Recover from panics in cron jobs
		),
	)
	return &Scheduler{
		config: cfg,
		store:  st,
		log:    log,
		cron:   c,
		cancel: cancel,
	}
}

// Start registers the maintenance jobs and blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	// Leftover .rec files from a crashed session are swept immediately,
	// then hourly.
	s.store.SweepTemp()

	if jobID, err := s.cron.AddFunc("0 * * * *", func(ctx context.Context) error {
		s.store.SweepTemp()
		return nil
	}); err != nil {
		s.log.Error("failed to schedule temp sweep", "error", err)
	} else {
		s.log.Debug("scheduled hourly temp sweep", "job_id", jobID)
	}

	if jobID, err := s.cron.AddFunc("0 0 * * *", func(ctx context.Context) error {
		s.store.CleanupOld(s.config.KeepDays)
		return nil
	}); err != nil {
		s.log.Error("failed to schedule daily cleanup", "error", err)
	} else {
		s.log.Debug("scheduled daily cleanup at midnight", "job_id", jobID, "keep_days", s.config.KeepDays)
	}

	s.cron.Start()
	s.log.Info("scheduler started")

	<-ctx.Done()

	s.cancel()
	s.cron.Stop()
	s.log.Info("scheduler stopped")
}
