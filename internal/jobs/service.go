package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
	"github.com/rahuliitk/interiorai-sub000/internal/metrics"
)

// PollInterval is the reference interval for clients polling a job's status.
// Polling stops once the status is completed, failed, or cancelled.
const PollInterval = 2 * time.Second

// Dispatcher launches the fire-and-forget worker call for a job.
type Dispatcher interface {
	Dispatch(job *domain.Job) error
	HasRoute(jobType domain.JobType) bool
}

// Service owns every mutation of the job ledger: dispatch, worker
// write-backs, and the administrative retry/cancel moves.
type Service struct {
	repo       domain.JobRepository
	dispatcher Dispatcher
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService wires the orchestration service.
func NewService(repo domain.JobRepository, dispatcher Dispatcher, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
	}
}

// Create inserts a pending ledger row carrying the caller's payload as the
// input snapshot, then fires the worker call. The dispatch outcome never
// affects the returned job: callers observe progress by polling.
func (s *Service) Create(ctx context.Context, ownerID string, jobType domain.JobType, scope domain.JobScope, payload json.RawMessage) (*domain.Job, error) {
	if !domain.ValidJobType(jobType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownJobType, jobType)
	}
	if !s.dispatcher.HasRoute(jobType) {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoWorkerRoute, jobType)
	}
	if len(payload) == 0 {
		payload = json.RawMessage(`{}`)
	}

	job := &domain.Job{
		ID:            uuid.NewString(),
		Type:          jobType,
		Status:        domain.JobStatusPending,
		Progress:      0,
		InputSnapshot: payload,
		OwnerID:       ownerID,
		Scope:         scope,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	metrics.JobCreated(string(jobType))

	if err := s.dispatcher.Dispatch(job); err != nil {
		// The row exists; a dispatch that could not even be assembled is
		// operationally the same as an unreachable worker.
		s.logger.Error().Err(err).Str("job_id", job.ID).Msg("jobs: dispatch not attempted")
	}
	return job, nil
}

// Get returns a job scoped to its owner.
func (s *Service) Get(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	return s.repo.GetForOwner(ctx, jobID, ownerID)
}

// List returns the owner's jobs matching the filter.
func (s *Service) List(ctx context.Context, ownerID string, f domain.JobFilter) ([]domain.Job, error) {
	f.OwnerID = ownerID
	return s.repo.List(ctx, f)
}

// WorkerUpdate is a progress or completion report from a worker, correlated
// by job id.
type WorkerUpdate struct {
	Status   domain.JobStatus
	Progress *int
	Output   json.RawMessage
	Error    string
}

// ApplyWorkerUpdate applies a worker write-back to the ledger. Writes to a
// job already in a terminal status are ignored: a worker that finished after
// an administrator cancelled its job cannot act on an error anyway.
func (s *Service) ApplyWorkerUpdate(ctx context.Context, jobID string, u WorkerUpdate) (*domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		s.logger.Info().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Msg("jobs: ignoring worker write to terminal job")
		return job, nil
	}

	target := u.Status
	if target == "" {
		// Progress-only report; the first one moves the job off pending.
		target = domain.JobStatusRunning
	}
	if !domain.CanTransition(job.Status, target) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidState, job.Status, target)
	}
	if u.Progress != nil && (*u.Progress < 0 || *u.Progress > 100) {
		return nil, fmt.Errorf("%w: progress %d out of range", domain.ErrInvalidState, *u.Progress)
	}

	update := domain.JobUpdate{Status: target, Progress: u.Progress}
	switch target {
	case domain.JobStatusCompleted:
		if len(u.Output) == 0 {
			return nil, fmt.Errorf("%w: completed report without output", domain.ErrInvalidState)
		}
		update.Output = u.Output
	case domain.JobStatusFailed:
		if u.Error == "" {
			return nil, fmt.Errorf("%w: failed report without error", domain.ErrInvalidState)
		}
		update.Error = &u.Error
	}

	now := s.now().UTC()
	if job.StartedAt == nil && target != domain.JobStatusPending {
		update.StartedAt = &now
	}
	if target.Terminal() {
		update.CompletedAt = &now
	}

	if err := s.repo.Update(ctx, jobID, update); err != nil {
		return nil, fmt.Errorf("apply worker update: %w", err)
	}
	if target != job.Status {
		metrics.JobTransition(string(job.Type), string(target))
	}
	return s.repo.GetByID(ctx, jobID)
}

// Retry resets a failed job to pending and re-dispatches it from its
// retained input snapshot. The row keeps its identity so polling links and
// history stay valid.
func (s *Service) Retry(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusFailed {
		return nil, fmt.Errorf("%w: retry requires failed, job is %s", domain.ErrInvalidState, job.Status)
	}
	if err := s.repo.ResetForRetry(ctx, jobID); err != nil {
		return nil, fmt.Errorf("reset for retry: %w", err)
	}
	metrics.JobTransition(string(job.Type), string(domain.JobStatusPending))

	fresh := *job
	fresh.Status = domain.JobStatusPending
	fresh.Progress = 0
	fresh.ErrorMessage = ""
	fresh.OutputPayload = nil
	fresh.StartedAt = nil
	fresh.CompletedAt = nil

	if err := s.dispatcher.Dispatch(&fresh); err != nil {
		return nil, err
	}
	return &fresh, nil
}

// Cancel moves a pending or running job to cancelled. No message is sent to
// the worker; a late result write will be ignored by ApplyWorkerUpdate.
func (s *Service) Cancel(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := s.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusPending && job.Status != domain.JobStatusRunning {
		return nil, fmt.Errorf("%w: cancel requires pending or running, job is %s", domain.ErrInvalidState, job.Status)
	}

	now := s.now().UTC()
	update := domain.JobUpdate{
		Status:      domain.JobStatusCancelled,
		CompletedAt: &now,
	}
	if job.StartedAt == nil {
		update.StartedAt = &now
	}
	if err := s.repo.Update(ctx, jobID, update); err != nil {
		return nil, fmt.Errorf("cancel job: %w", err)
	}
	metrics.JobTransition(string(job.Type), string(domain.JobStatusCancelled))
	return s.repo.GetByID(ctx, jobID)
}

// AdminGet returns a job without owner scoping.
func (s *Service) AdminGet(ctx context.Context, jobID string) (*domain.Job, error) {
	return s.repo.GetByID(ctx, jobID)
}

// AdminList returns jobs across all owners, paginated.
func (s *Service) AdminList(ctx context.Context, f domain.JobFilter, page, perPage int) ([]domain.Job, error) {
	if perPage <= 0 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}
	if page < 1 {
		page = 1
	}
	f.OwnerID = ""
	f.Limit = perPage
	f.Offset = (page - 1) * perPage
	return s.repo.List(ctx, f)
}
