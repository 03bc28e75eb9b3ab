package domain

import (
	"context"
	"time"
)

// JobFilter narrows list queries. Zero values mean "no constraint"; OwnerID
// empty means scope-exempt (administrative) listing.
type JobFilter struct {
	OwnerID   string
	Type      JobType
	Status    JobStatus
	ProjectID string
	Limit     int
	Offset    int
}

// JobUpdate is a partial mutation of a ledger row. Zero-valued fields are
// left untouched; pointer fields overwrite when non-nil.
type JobUpdate struct {
	Status      JobStatus
	Progress    *int
	Output      []byte
	Error       *string
	StartedAt   *time.Time
	CompletedAt *time.Time
}

// JobRepository defines persistence for the job ledger.
type JobRepository interface {
	Create(ctx context.Context, job *Job) error
	// GetByID is scope-exempt; used by worker write-backs and operators.
	GetByID(ctx context.Context, jobID string) (*Job, error)
	// GetForOwner returns ErrNotFound for both absent rows and rows owned
	// by someone else.
	GetForOwner(ctx context.Context, jobID, ownerID string) (*Job, error)
	List(ctx context.Context, f JobFilter) ([]Job, error)
	Update(ctx context.Context, jobID string, u JobUpdate) error
	// ResetForRetry returns a failed job to pending: progress 0, error,
	// started_at and completed_at cleared. Input snapshot is untouched.
	ResetForRetry(ctx context.Context, jobID string) error
	ListStalePending(ctx context.Context, olderThan time.Time) ([]Job, error)
}

// OrderRepository handles persistence for purchase orders derived from
// procurement job output.
type OrderRepository interface {
	ListRefsByProject(ctx context.Context, projectID string) ([]string, error)
	SaveAll(ctx context.Context, orders []PurchaseOrder) error
}
