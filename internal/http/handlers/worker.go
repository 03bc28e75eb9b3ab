package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
	"github.com/rahuliitk/interiorai-sub000/internal/jobs"
)

type workerUpdateRequest struct {
	Status   string          `json:"status"`
	Progress *int            `json:"progress"`
	Output   json.RawMessage `json:"output"`
	Error    string          `json:"error"`
}

// WorkerJobUpdate is the write-back path: a worker reports progress or a
// terminal result against the job id it was handed in the dispatch envelope.
// A write to a job that already reached a terminal status is acknowledged
// with 200 and ignored, so late workers do not keep retrying it.
func (a *App) WorkerJobUpdate(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	var req workerUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if req.Status == "" && req.Progress == nil && len(req.Output) == 0 && req.Error == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "empty update")
		return
	}
	if req.Status != "" {
		switch domain.JobStatus(req.Status) {
		case domain.JobStatusRunning, domain.JobStatusCompleted, domain.JobStatusFailed:
		default:
			a.error(w, http.StatusBadRequest, "bad_request", "status must be running, completed, or failed")
			return
		}
	}

	job, err := a.Jobs.ApplyWorkerUpdate(r.Context(), jobID, jobs.WorkerUpdate{
		Status:   domain.JobStatus(req.Status),
		Progress: req.Progress,
		Output:   req.Output,
		Error:    req.Error,
	})
	if err != nil {
		a.domainError(w, err, http.StatusBadRequest)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"id": job.ID, "status": string(job.Status)})
}
