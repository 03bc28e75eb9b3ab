package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
)

// AdminJobsList returns jobs across all owners, paginated. Intended for
// operational tooling; the router mounts it outside the owner middleware.
func (a *App) AdminJobsList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := domain.JobFilter{
		Type:   domain.JobType(q.Get("type")),
		Status: domain.JobStatus(q.Get("status")),
	}
	page := intQuery(q.Get("page"), 1)
	perPage := intQuery(q.Get("per_page"), 50)

	list, err := a.Jobs.AdminList(r.Context(), f, page, perPage)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":    newJobViews(list),
		"page":     page,
		"per_page": perPage,
	})
}

// AdminJobsRetry resets a failed job to pending and re-dispatches it from
// the retained input snapshot.
func (a *App) AdminJobsRetry(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Retry(r.Context(), jobID)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusOK, newJobView(job))
}

// AdminJobsCancel moves a pending or running job to cancelled. The worker is
// not contacted; its eventual late write will be ignored.
func (a *App) AdminJobsCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, err := a.Jobs.Cancel(r.Context(), jobID)
	if err != nil {
		a.domainError(w, err, http.StatusConflict)
		return
	}
	a.json(w, http.StatusOK, newJobView(job))
}

func intQuery(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
