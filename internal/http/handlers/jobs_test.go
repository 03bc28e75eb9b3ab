package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
	"github.com/rahuliitk/interiorai-sub000/internal/jobs"
	"github.com/rahuliitk/interiorai-sub000/internal/middleware"
	"github.com/rahuliitk/interiorai-sub000/internal/procurement"
)

// memJobRepo backs the service under test.
type memJobRepo struct {
	mu   sync.Mutex
	jobs map[string]*domain.Job
}

func newMemJobRepo() *memJobRepo { return &memJobRepo{jobs: map[string]*domain.Job{}} }

func (m *memJobRepo) Create(_ context.Context, job *domain.Job) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memJobRepo) GetByID(_ context.Context, jobID string) (*domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *job
	return &copied, nil
}

func (m *memJobRepo) GetForOwner(ctx context.Context, jobID, ownerID string) (*domain.Job, error) {
	job, err := m.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.OwnerID != ownerID {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (m *memJobRepo) List(_ context.Context, f domain.JobFilter) ([]domain.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Job
	for _, j := range m.jobs {
		if f.OwnerID != "" && j.OwnerID != f.OwnerID {
			continue
		}
		if f.Type != "" && j.Type != f.Type {
			continue
		}
		if f.Status != "" && j.Status != f.Status {
			continue
		}
		out = append(out, *j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.After(out[k].CreatedAt) })
	return out, nil
}

func (m *memJobRepo) Update(_ context.Context, jobID string, u domain.JobUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	if u.Status != "" {
		job.Status = u.Status
	}
	if u.Progress != nil {
		job.Progress = *u.Progress
	}
	if len(u.Output) > 0 {
		job.OutputPayload = append([]byte(nil), u.Output...)
	}
	if u.Error != nil {
		job.ErrorMessage = *u.Error
	}
	if u.StartedAt != nil {
		started := *u.StartedAt
		job.StartedAt = &started
	}
	if u.CompletedAt != nil {
		completed := *u.CompletedAt
		job.CompletedAt = &completed
	}
	return nil
}

func (m *memJobRepo) ResetForRetry(_ context.Context, jobID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = domain.JobStatusPending
	job.Progress = 0
	job.ErrorMessage = ""
	job.OutputPayload = nil
	job.StartedAt = nil
	job.CompletedAt = nil
	return nil
}

func (m *memJobRepo) ListStalePending(context.Context, time.Time) ([]domain.Job, error) {
	return nil, nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders []domain.PurchaseOrder
}

func (m *memOrderRepo) ListRefsByProject(_ context.Context, projectID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var refs []string
	for _, o := range m.orders {
		if o.ProjectID == projectID {
			refs = append(refs, o.OrderRef)
		}
	}
	return refs, nil
}

func (m *memOrderRepo) SaveAll(_ context.Context, orders []domain.PurchaseOrder) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, orders...)
	return nil
}

type fakeDispatcher struct{}

func (fakeDispatcher) Dispatch(*domain.Job) error   { return nil }
func (fakeDispatcher) HasRoute(domain.JobType) bool { return true }

type testEnv struct {
	router http.Handler
	repo   *memJobRepo
	orders *memOrderRepo
}

// newTestEnv mirrors the production route table over in-memory repositories.
func newTestEnv() *testEnv {
	repo := newMemJobRepo()
	orders := &memOrderRepo{}
	service := jobs.NewService(repo, fakeDispatcher{}, zerolog.Nop())
	sync := procurement.NewSynchronizer(repo, orders, zerolog.Nop())
	app := NewApp(service, sync, zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(middleware.Owner)
		r.Post("/", app.JobsCreate)
		r.Get("/", app.JobsList)
		r.Get("/{job_id}", app.JobsGet)
		r.Post("/{job_id}/sync", app.JobsSync)
	})
	r.Post("/v1/worker/jobs/{job_id}", app.WorkerJobUpdate)
	r.Route("/v1/admin/jobs", func(r chi.Router) {
		r.Get("/", app.AdminJobsList)
		r.Post("/{job_id}/retry", app.AdminJobsRetry)
		r.Post("/{job_id}/cancel", app.AdminJobsCancel)
	})
	return &testEnv{router: r, repo: repo, orders: orders}
}

func (e *testEnv) do(t *testing.T, method, path, owner string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if owner != "" {
		req.Header.Set("X-Owner-ID", owner)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeJob(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return payload
}

func TestJobsCreateAccepted(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "bom_calculation",
		"project_id": "project-1",
		"variant_id": "variant-1",
		"payload":    map[string]any{"style": "modern"},
	})
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202 (%s)", rr.Code, rr.Body.String())
	}
	job := decodeJob(t, rr)
	if job["status"] != "pending" {
		t.Errorf("status = %v, want pending", job["status"])
	}
	if job["progress"] != float64(0) {
		t.Errorf("progress = %v, want 0", job["progress"])
	}
	if job["id"] == "" || job["id"] == nil {
		t.Error("response must carry the job id for polling")
	}
}

func TestJobsCreateRequiresOwner(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "", map[string]any{
		"type":       "bom_calculation",
		"project_id": "project-1",
	})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
}

func TestJobsCreateRejectsUnknownType(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "espresso_brewing",
		"project_id": "project-1",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rr.Code)
	}
}

func TestJobPollThroughWorkerCompletion(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "bom_calculation",
		"project_id": "project-1",
	})
	jobID := decodeJob(t, rr)["id"].(string)

	// Poll: still pending.
	rr = env.do(t, "GET", "/v1/jobs/"+jobID, "owner-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("poll status = %d, want 200", rr.Code)
	}
	if decodeJob(t, rr)["status"] != "pending" {
		t.Fatal("job must still be pending before the worker reports")
	}

	// Worker write-back.
	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{
		"status":   "completed",
		"progress": 100,
		"output":   map[string]any{"items": []any{}, "total": 1200},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("worker callback status = %d (%s)", rr.Code, rr.Body.String())
	}

	// Next poll observes the terminal status and the output payload.
	rr = env.do(t, "GET", "/v1/jobs/"+jobID, "owner-1", nil)
	job := decodeJob(t, rr)
	if job["status"] != "completed" {
		t.Errorf("status = %v, want completed", job["status"])
	}
	if job["output"] == nil {
		t.Error("completed job must expose its output")
	}
	if job["completed_at"] == nil {
		t.Error("completed job must expose completed_at")
	}
}

func TestJobsGetHidesForeignJobs(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "design_generation",
		"project_id": "project-1",
	})
	jobID := decodeJob(t, rr)["id"].(string)

	rr = env.do(t, "GET", "/v1/jobs/"+jobID, "owner-2", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 for a foreign owner", rr.Code)
	}
}

func TestWorkerCallbackInvariants(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "mep_electrical",
		"project_id": "project-1",
	})
	jobID := decodeJob(t, rr)["id"].(string)

	// completed without output
	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{"status": "completed"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("completed without output = %d, want 400", rr.Code)
	}
	// failed without error
	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{"status": "failed"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("failed without error = %d, want 400", rr.Code)
	}
	// bogus status value
	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{"status": "pending"})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("worker-sent pending = %d, want 400", rr.Code)
	}
	// unknown job id
	rr = env.do(t, "POST", "/v1/worker/jobs/00000000-0000-0000-0000-000000000000", "", map[string]any{"progress": 10})
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown job = %d, want 404", rr.Code)
	}
}

func TestAdminRetryFlow(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "cutlist_generation",
		"project_id": "project-1",
	})
	jobID := decodeJob(t, rr)["id"].(string)

	// Retry of a pending job is rejected: the job never failed.
	rr = env.do(t, "POST", "/v1/admin/jobs/"+jobID+"/retry", "", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("retry pending = %d, want 409", rr.Code)
	}

	// Worker reports failure; retry now resets the job.
	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{"status": "failed", "error": "timeout"})
	if rr.Code != http.StatusOK {
		t.Fatalf("failure callback = %d", rr.Code)
	}
	rr = env.do(t, "POST", "/v1/admin/jobs/"+jobID+"/retry", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("retry failed job = %d (%s)", rr.Code, rr.Body.String())
	}
	job := decodeJob(t, rr)
	if job["status"] != "pending" || job["progress"] != float64(0) {
		t.Errorf("retried job = %v/%v, want pending/0", job["status"], job["progress"])
	}
	if _, ok := job["error"]; ok {
		t.Error("retried job must not expose an error")
	}
}

func TestAdminCancelFlow(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "schedule_generation",
		"project_id": "project-1",
	})
	jobID := decodeJob(t, rr)["id"].(string)

	rr = env.do(t, "POST", "/v1/admin/jobs/"+jobID+"/cancel", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("cancel pending = %d", rr.Code)
	}
	if decodeJob(t, rr)["status"] != "cancelled" {
		t.Error("cancelled job must report cancelled")
	}

	// Cancelling again is an invalid transition.
	rr = env.do(t, "POST", "/v1/admin/jobs/"+jobID+"/cancel", "", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("cancel terminal = %d, want 409", rr.Code)
	}

	// A late worker result is acknowledged and ignored.
	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{
		"status": "completed",
		"output": map[string]any{"late": true},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("late worker write = %d, want 200", rr.Code)
	}
	rr = env.do(t, "GET", "/v1/jobs/"+jobID, "owner-1", nil)
	if decodeJob(t, rr)["status"] != "cancelled" {
		t.Error("late write must not change the terminal status")
	}
}

func TestAdminListSeesAllOwners(t *testing.T) {
	env := newTestEnv()
	env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{"type": "bom_calculation", "project_id": "p1"})
	env.do(t, "POST", "/v1/jobs", "owner-2", map[string]any{"type": "bom_calculation", "project_id": "p2"})

	rr := env.do(t, "GET", "/v1/admin/jobs?status=pending", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("admin list = %d", rr.Code)
	}
	var payload struct {
		Items []map[string]any `json:"items"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("admin list sees %d jobs, want 2", len(payload.Items))
	}
}

func TestJobsSyncEndpoint(t *testing.T) {
	env := newTestEnv()
	rr := env.do(t, "POST", "/v1/jobs", "owner-1", map[string]any{
		"type":       "procurement_generation",
		"project_id": "project-1",
	})
	jobID := decodeJob(t, rr)["id"].(string)

	// Sync before completion is rejected.
	rr = env.do(t, "POST", "/v1/jobs/"+jobID+"/sync", "owner-1", nil)
	if rr.Code != http.StatusConflict {
		t.Fatalf("sync of non-completed job = %d, want 409", rr.Code)
	}

	rr = env.do(t, "POST", "/v1/worker/jobs/"+jobID, "", map[string]any{
		"status": "completed",
		"output": map[string]any{"orders": []map[string]any{
			{"order_ref": "PO-7", "supplier": "TimberCo", "total_amount": 45000},
		}},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("completion callback = %d", rr.Code)
	}

	rr = env.do(t, "POST", "/v1/jobs/"+jobID+"/sync", "owner-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("sync = %d (%s)", rr.Code, rr.Body.String())
	}
	res := decodeJob(t, rr)
	if res["applied"] != true || res["orders_created"] != float64(1) {
		t.Fatalf("sync result = %v", res)
	}

	// Second sync persists nothing new.
	rr = env.do(t, "POST", "/v1/jobs/"+jobID+"/sync", "owner-1", nil)
	res = decodeJob(t, rr)
	if res["applied"] != false || res["orders_created"] != float64(0) {
		t.Fatalf("second sync result = %v", res)
	}
	if len(env.orders.orders) != 1 {
		t.Fatalf("order rows = %d, want 1", len(env.orders.orders))
	}
}
