package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
)

type jobCreateRequest struct {
	Type      string          `json:"type"`
	ProjectID string          `json:"project_id"`
	RoomID    string          `json:"room_id"`
	VariantID string          `json:"variant_id"`
	Payload   json.RawMessage `json:"payload"`
}

// JobsCreate inserts a pending job and fires the worker dispatch. The 202
// response carries the ledger row; callers poll it until a terminal status.
func (a *App) JobsCreate(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	var req jobCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Type == "" || req.ProjectID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "type and project_id are required")
		return
	}

	scope := domain.JobScope{ProjectID: req.ProjectID, RoomID: req.RoomID, VariantID: req.VariantID}
	job, err := a.Jobs.Create(r.Context(), ownerID, domain.JobType(req.Type), scope, req.Payload)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusAccepted, newJobView(job))
}

// JobsGet is the polling read. Callers poll every couple of seconds and stop
// once status is completed, failed, or cancelled.
func (a *App) JobsGet(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Get(r.Context(), jobID, ownerID)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusOK, newJobView(job))
}

// JobsList returns the caller's jobs, optionally narrowed by type, status,
// and project.
func (a *App) JobsList(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	f := domain.JobFilter{
		Type:      domain.JobType(r.URL.Query().Get("type")),
		Status:    domain.JobStatus(r.URL.Query().Get("status")),
		ProjectID: r.URL.Query().Get("project_id"),
	}
	list, err := a.Jobs.List(r.Context(), ownerID, f)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": newJobViews(list)})
}

// JobsSync applies a completed procurement job's output to the purchase
// order table, at most once.
func (a *App) JobsSync(w http.ResponseWriter, r *http.Request) {
	ownerID := a.currentOwnerID(r)
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	res, err := a.Procurement.Sync(r.Context(), jobID, ownerID)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"applied":        res.Applied,
		"orders_created": res.OrdersCreated,
	})
}
