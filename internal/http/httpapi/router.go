package httpapi

import (
	stdhttp "net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/rahuliitk/interiorai-sub000/internal/http/handlers"
	"github.com/rahuliitk/interiorai-sub000/internal/middleware"
)

func NewRouter(app *handlers.App, logger zerolog.Logger) stdhttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, chimw.RealIP, chimw.Recoverer, middleware.Logger(logger))

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	// Caller surface: owner-scoped dispatch, polling, and result sync.
	r.Route("/v1/jobs", func(r chi.Router) {
		r.Use(middleware.Owner)
		r.Post("/", app.JobsCreate)
		r.Get("/", app.JobsList)
		r.Get("/{job_id}", app.JobsGet)
		r.Post("/{job_id}/sync", app.JobsSync)
	})

	// Worker write-back, correlated by job id alone.
	r.Post("/v1/worker/jobs/{job_id}", app.WorkerJobUpdate)

	// Administrative surface, scope-exempt.
	r.Route("/v1/admin/jobs", func(r chi.Router) {
		r.Get("/", app.AdminJobsList)
		r.Post("/{job_id}/retry", app.AdminJobsRetry)
		r.Post("/{job_id}/cancel", app.AdminJobsCancel)
	})

	return r
}
