package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
	"github.com/rahuliitk/interiorai-sub000/internal/metrics"
)

// Dispatcher sends best-effort job requests to workers. The call is launched
// on a detached goroutine with its own deadline; its outcome never reaches
// the caller. A job whose worker was unreachable simply stays pending.
type Dispatcher struct {
	table   *Table
	client  *http.Client
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDispatcher builds a dispatcher over the given routing table. timeout
// bounds the connect+send of one dispatch attempt.
func NewDispatcher(table *Table, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Dispatcher{
		table:   table,
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
		logger:  logger,
	}
}

// HasRoute reports whether a worker route exists for the job type.
func (d *Dispatcher) HasRoute(jobType domain.JobType) bool {
	_, err := d.table.Route(jobType)
	return err == nil
}

// Dispatch resolves the worker route and fires the request. The returned
// error covers only route resolution and envelope assembly; transport
// failures are swallowed after being logged and counted.
func (d *Dispatcher) Dispatch(job *domain.Job) error {
	route, err := d.table.Route(job.Type)
	if err != nil {
		return err
	}
	body, err := buildEnvelope(job)
	if err != nil {
		return err
	}

	url := route.BaseURL + route.Path
	go d.send(job, url, body)
	return nil
}

func (d *Dispatcher) send(job *domain.Job, url string, body []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		d.noteFailure(job, url, err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		d.noteFailure(job, url, err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		d.logger.Warn().
			Str("job_id", job.ID).
			Str("type", string(job.Type)).
			Int("status", resp.StatusCode).
			Msg("dispatch: worker rejected request")
		metrics.DispatchFailed(string(job.Type))
		return
	}
	d.logger.Debug().Str("job_id", job.ID).Str("type", string(job.Type)).Msg("dispatch: sent")
}

func (d *Dispatcher) noteFailure(job *domain.Job, url string, err error) {
	d.logger.Warn().
		Err(err).
		Str("job_id", job.ID).
		Str("type", string(job.Type)).
		Str("url", url).
		Msg("dispatch: worker unreachable")
	metrics.DispatchFailed(string(job.Type))
}

// buildEnvelope merges the job's correlation fields over its retained input
// snapshot. A snapshot that is not a JSON object is carried under "payload".
func buildEnvelope(job *domain.Job) ([]byte, error) {
	envelope := map[string]any{}
	if len(job.InputSnapshot) > 0 {
		if err := json.Unmarshal(job.InputSnapshot, &envelope); err != nil {
			var v any
			if err := json.Unmarshal(job.InputSnapshot, &v); err != nil {
				return nil, err
			}
			envelope = map[string]any{"payload": v}
		}
	}
	envelope["job_id"] = job.ID
	envelope["owner_id"] = job.OwnerID
	envelope["project_id"] = job.Scope.ProjectID
	if job.Scope.RoomID != "" {
		envelope["room_id"] = job.Scope.RoomID
	}
	if job.Scope.VariantID != "" {
		envelope["variant_id"] = job.Scope.VariantID
	}
	return json.Marshal(envelope)
}
