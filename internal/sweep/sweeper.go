package sweep

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
	"github.com/rahuliitk/interiorai-sub000/internal/jobs"
)

// The stale error message is fixed so operators can tell swept jobs apart
// from worker-reported failures.
const staleError = "dispatch unobserved: job stayed pending past the sweep deadline"

// Sweeper periodically fails jobs that sat in pending longer than MaxAge.
// Those jobs most likely lost their dispatch request (worker outage during a
// fire-and-forget send), which the core otherwise leaves invisible. The
// sweep is opt-in; without it a silent dispatch failure keeps the job
// pending forever.
type Sweeper struct {
	service *jobs.Service
	repo    domain.JobRepository
	maxAge  time.Duration
	logger  zerolog.Logger
	cron    *cron.Cron
}

// NewSweeper builds a sweeper over the orchestration service.
func NewSweeper(service *jobs.Service, repo domain.JobRepository, maxAge time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		service: service,
		repo:    repo,
		maxAge:  maxAge,
		logger:  logger,
	}
}

// Start schedules the sweep with a cron expression and runs it until Stop.
func (s *Sweeper) Start(schedule string) error {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.Run(ctx)
	})
	if err != nil {
		return err
	}
	s.cron = c
	c.Start()
	s.logger.Info().Str("schedule", schedule).Dur("max_age", s.maxAge).Msg("sweep: started")
	return nil
}

// Stop halts the schedule; a sweep already in flight finishes.
func (s *Sweeper) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Run performs one sweep pass and returns how many jobs it failed.
func (s *Sweeper) Run(ctx context.Context) int {
	cutoff := time.Now().UTC().Add(-s.maxAge)
	stale, err := s.repo.ListStalePending(ctx, cutoff)
	if err != nil {
		s.logger.Error().Err(err).Msg("sweep: list stale pending")
		return 0
	}
	swept := 0
	for i := range stale {
		job := stale[i]
		// The regular write-back path keeps the ledger invariants intact
		// and skips jobs that turned terminal since the list query.
		if _, err := s.service.ApplyWorkerUpdate(ctx, job.ID, jobs.WorkerUpdate{
			Status: domain.JobStatusFailed,
			Error:  staleError,
		}); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("sweep: mark failed")
			continue
		}
		swept++
		s.logger.Info().
			Str("job_id", job.ID).
			Str("type", string(job.Type)).
			Time("created_at", job.CreatedAt).
			Msg("sweep: failed stale pending job")
	}
	return swept
}
