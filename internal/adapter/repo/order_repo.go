package repo

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
)

// OrderRepositoryPG implements domain.OrderRepository.
type OrderRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a purchase-order repository backed by PostgreSQL.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepositoryPG {
	return &OrderRepositoryPG{pool: pool}
}

// ListRefsByProject returns the worker-assigned order refs already persisted
// for a project.
func (r *OrderRepositoryPG) ListRefsByProject(ctx context.Context, projectID string) ([]string, error) {
	query := `SELECT order_ref FROM purchase_orders WHERE project_id = $1;`
	rows, err := r.pool.Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// SaveAll persists a batch of purchase orders. The unique constraint on
// (project_id, order_ref) backstops concurrent synchronizer calls.
func (r *OrderRepositoryPG) SaveAll(ctx context.Context, orders []domain.PurchaseOrder) error {
	query := `
INSERT INTO purchase_orders (id, project_id, job_id, order_ref, supplier, status, items, total_amount, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (project_id, order_ref) DO NOTHING;
`
	for _, o := range orders {
		if _, err := r.pool.Exec(ctx, query,
			o.ID,
			o.ProjectID,
			o.JobID,
			o.OrderRef,
			o.Supplier,
			o.Status,
			nullableBytes(o.ItemsJSON),
			o.TotalAmount,
			o.CreatedAt,
		); err != nil {
			return err
		}
	}
	return nil
}

var _ domain.OrderRepository = (*OrderRepositoryPG)(nil)
