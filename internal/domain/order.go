package domain

import "time"

// PurchaseOrder is a business record derived from the output of a completed
// procurement_generation job. OrderRef is assigned by the worker and is the
// key the synchronizer deduplicates on within a project.
type PurchaseOrder struct {
	ID          string
	ProjectID   string
	JobID       string
	OrderRef    string
	Supplier    string
	Status      string
	ItemsJSON   []byte
	TotalAmount float64
	CreatedAt   time.Time
}
