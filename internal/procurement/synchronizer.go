package procurement

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

// Synchronizer turns the output of a completed procurement_generation job
// into persisted purchase orders, at most once per job. The guard is the
// worker-assigned order ref: if any ref from the output already exists in
// the project, the whole batch is treated as applied.
type Synchronizer struct {
	jobs   domain.JobRepository
	orders domain.OrderRepository
	logger zerolog.Logger
	now    func() time.Time
}

// NewSynchronizer wires the result synchronizer.
func NewSynchronizer(jobs domain.JobRepository, orders domain.OrderRepository, logger zerolog.Logger) *Synchronizer {
	return &Synchronizer{jobs: jobs, orders: orders, logger: logger, now: time.Now}
}

// Result reports what one Sync call did.
type Result struct {
	Applied       bool
	OrdersCreated int
}

type outputPayload struct {
	Orders []candidateOrder `json:"orders"`
}

type candidateOrder struct {
	OrderRef    string          `json:"order_ref"`
	Supplier    string          `json:"supplier"`
	Items       json.RawMessage `json:"items"`
	TotalAmount float64         `json:"total_amount"`
}

// Sync persists the purchase orders of a completed job. Calling it again, or
// concurrently from a second client, persists nothing new: the ref
// intersection check catches repeats, and the unique constraint on
// (project_id, order_ref) backstops the read-then-write race.
func (s *Synchronizer) Sync(ctx context.Context, jobID, ownerID string) (*Result, error) {
	job, err := s.jobs.GetForOwner(ctx, jobID, ownerID)
	if err != nil {
		return nil, err
	}
	if job.Type != domain.JobTypeProcurementGenerate {
		return nil, fmt.Errorf("%w: job type %s has no synchronizer", domain.ErrInvalidState, job.Type)
	}
	if job.Status != domain.JobStatusCompleted {
		return nil, fmt.Errorf("%w: job is %s, not completed", domain.ErrInvalidState, job.Status)
	}

	var out outputPayload
	if err := json.Unmarshal(job.OutputPayload, &out); err != nil {
		return nil, fmt.Errorf("parse output payload: %w", err)
	}
	if len(out.Orders) == 0 {
		return &Result{Applied: true}, nil
	}
	for _, c := range out.Orders {
		if c.OrderRef == "" {
			return nil, fmt.Errorf("parse output payload: order without order_ref")
		}
	}

	existing, err := s.orders.ListRefsByProject(ctx, job.Scope.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("load existing orders: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, ref := range existing {
		seen[ref] = struct{}{}
	}
	for _, c := range out.Orders {
		if _, ok := seen[c.OrderRef]; ok {
			s.logger.Info().
				Str("job_id", job.ID).
				Str("order_ref", c.OrderRef).
				Msg("procurement: batch already applied")
			return &Result{Applied: false}, nil
		}
	}

	now := s.now().UTC()
	orders := make([]domain.PurchaseOrder, 0, len(out.Orders))
	for _, c := range out.Orders {
		orders = append(orders, domain.PurchaseOrder{
			ID:          uuid.NewString(),
			ProjectID:   job.Scope.ProjectID,
			JobID:       job.ID,
			OrderRef:    c.OrderRef,
			Supplier:    c.Supplier,
			Status:      "draft",
			ItemsJSON:   c.Items,
			TotalAmount: c.TotalAmount,
			CreatedAt:   now,
		})
	}
	if err := s.orders.SaveAll(ctx, orders); err != nil {
		return nil, fmt.Errorf("persist orders: %w", err)
	}
	metrics.OrdersSynced(len(orders))
	return &Result{Applied: true, OrdersCreated: len(orders)}, nil
}
