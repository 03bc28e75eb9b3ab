package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
	"github.com/rahuliitk/interiorai-sub000/internal/jobs"
	"github.com/rahuliitk/interiorai-sub000/internal/middleware"
	"github.com/rahuliitk/interiorai-sub000/internal/procurement"
)

// App carries the wired services into the HTTP handlers.
type App struct {
	Jobs        *jobs.Service
	Procurement *procurement.Synchronizer
	Logger      zerolog.Logger
}

func NewApp(jobsSvc *jobs.Service, sync *procurement.Synchronizer, logger zerolog.Logger) *App {
	return &App{Jobs: jobsSvc, Procurement: sync, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, kind, msg string) {
	a.json(w, code, map[string]string{"error": kind, "message": msg})
}

func (a *App) currentOwnerID(r *http.Request) string {
	return middleware.OwnerIDFromContext(r.Context())
}

// domainError maps the service error taxonomy onto HTTP statuses.
// invalidStateCode lets the worker callback report invariant violations as
// 400 while the administrative surface reports them as 409.
func (a *App) domainError(w http.ResponseWriter, err error, invalidStateCode int) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		a.error(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, invalidStateCode, "invalid_state", err.Error())
	case errors.Is(err, domain.ErrUnknownJobType):
		a.error(w, http.StatusBadRequest, "bad_request", err.Error())
	case errors.Is(err, domain.ErrNoWorkerRoute):
		a.Logger.Error().Err(err).Msg("handlers: missing worker route")
		a.error(w, http.StatusInternalServerError, "configuration", "no worker route for job type")
	default:
		a.Logger.Error().Err(err).Msg("handlers: internal error")
		a.error(w, http.StatusInternalServerError, "internal", "internal error")
	}
}
