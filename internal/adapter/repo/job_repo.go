package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

const jobColumns = `id, type, status, progress, input_snapshot, output_payload, error_message,
owner_id, project_id, room_id, variant_id, created_at, started_at, completed_at`

// Create inserts a new ledger row.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.Job) error {
	query := `
INSERT INTO jobs (id, type, status, progress, input_snapshot, owner_id, project_id, room_id, variant_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.Type,
		job.Status,
		job.Progress,
		job.InputSnapshot,
		job.OwnerID,
		job.Scope.ProjectID,
		nullableString(job.Scope.RoomID),
		nullableString(job.Scope.VariantID),
		job.CreatedAt,
	)
	return err
}

// GetByID fetches a job by its identifier, without owner scoping.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1;`, jobColumns)
	return r.scanJob(r.pool.QueryRow(ctx, query, jobID))
}

// GetForOwner fetches a job scoped to the owner that created it. Absent rows
// and rows owned by someone else are both reported as ErrNotFound.
func (r *JobRepositoryPG) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE id = $1 AND owner_id = $2;`, jobColumns)
	return r.scanJob(r.pool.QueryRow(ctx, query, jobID, ownerID))
}

// List returns jobs matching the filter, newest first.
func (r *JobRepositoryPG) List(ctx context.Context, f domain.JobFilter) ([]domain.Job, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if f.Type != "" {
		add("type = $%d", f.Type)
	}
	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.ProjectID != "" {
		add("project_id = $%d", f.ProjectID)
	}

	query := fmt.Sprintf(`SELECT %s FROM jobs`, jobColumns)
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query+";", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

// Update applies a partial mutation to a ledger row.
func (r *JobRepositoryPG) Update(ctx context.Context, jobID string, u domain.JobUpdate) error {
	query := `
UPDATE jobs
SET status = COALESCE(NULLIF($2, ''), status),
    progress = COALESCE($3, progress),
    output_payload = COALESCE($4, output_payload),
    error_message = COALESCE($5, error_message),
    started_at = COALESCE($6, started_at),
    completed_at = COALESCE($7, completed_at)
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query,
		jobID,
		string(u.Status),
		u.Progress,
		nullableBytes(u.Output),
		u.Error,
		u.StartedAt,
		u.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ResetForRetry returns a failed job to pending with its bookkeeping cleared.
func (r *JobRepositoryPG) ResetForRetry(ctx context.Context, jobID string) error {
	query := `
UPDATE jobs
SET status = 'pending',
    progress = 0,
    error_message = NULL,
    output_payload = NULL,
    started_at = NULL,
    completed_at = NULL
WHERE id = $1;
`
	tag, err := r.pool.Exec(ctx, query, jobID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListStalePending returns pending jobs created before the cutoff.
func (r *JobRepositoryPG) ListStalePending(ctx context.Context, olderThan time.Time) ([]domain.Job, error) {
	query := fmt.Sprintf(`SELECT %s FROM jobs WHERE status = 'pending' AND created_at < $1 ORDER BY created_at;`, jobColumns)
	rows, err := r.pool.Query(ctx, query, olderThan)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *JobRepositoryPG) scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job     domain.Job
		errMsg  *string
		roomID  *string
		variant *string
	)
	if err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Status,
		&job.Progress,
		&job.InputSnapshot,
		&job.OutputPayload,
		&errMsg,
		&job.OwnerID,
		&job.Scope.ProjectID,
		&roomID,
		&variant,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	job.ErrorMessage = deref(errMsg)
	job.Scope.RoomID = deref(roomID)
	job.Scope.VariantID = deref(variant)
	return &job, nil
}

func collectJobs(rows pgx.Rows) ([]domain.Job, error) {
	var jobs []domain.Job
	for rows.Next() {
		var (
			job     domain.Job
			errMsg  *string
			roomID  *string
			variant *string
		)
		if err := rows.Scan(
			&job.ID,
			&job.Type,
			&job.Status,
			&job.Progress,
			&job.InputSnapshot,
			&job.OutputPayload,
			&errMsg,
			&job.OwnerID,
			&job.Scope.ProjectID,
			&roomID,
			&variant,
			&job.CreatedAt,
			&job.StartedAt,
			&job.CompletedAt,
		); err != nil {
			return nil, err
		}
		job.ErrorMessage = deref(errMsg)
		job.Scope.RoomID = deref(roomID)
		job.Scope.VariantID = deref(variant)
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func nullableBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

var _ domain.JobRepository = (*JobRepositoryPG)(nil)
