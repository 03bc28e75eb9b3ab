package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema is applied at startup. Statements are idempotent so repeated boots
// against the same database are harmless.
const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id             uuid PRIMARY KEY,
    type           text NOT NULL,
    status         text NOT NULL DEFAULT 'pending',
    progress       int  NOT NULL DEFAULT 0,
    input_snapshot jsonb NOT NULL,
    output_payload jsonb,
    error_message  text,
    owner_id       uuid NOT NULL,
    project_id     uuid NOT NULL,
    room_id        uuid,
    variant_id     uuid,
    created_at     timestamptz NOT NULL DEFAULT now(),
    started_at     timestamptz,
    completed_at   timestamptz
);

CREATE INDEX IF NOT EXISTS idx_jobs_owner ON jobs (owner_id, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs (status);
CREATE INDEX IF NOT EXISTS idx_jobs_project ON jobs (project_id);

CREATE TABLE IF NOT EXISTS purchase_orders (
    id           uuid PRIMARY KEY,
    project_id   uuid NOT NULL,
    job_id       uuid NOT NULL,
    order_ref    text NOT NULL,
    supplier     text NOT NULL DEFAULT '',
    status       text NOT NULL DEFAULT 'draft',
    items        jsonb,
    total_amount numeric(14,2) NOT NULL DEFAULT 0,
    created_at   timestamptz NOT NULL DEFAULT now(),
    UNIQUE (project_id, order_ref)
);

CREATE INDEX IF NOT EXISTS idx_orders_job ON purchase_orders (job_id);
`

// Migrate ensures the orchestration schema exists.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
