package handlers

import (
	"encoding/json"
	"time"

	"github.com/rahuliitk/interiorai-sub000/internal/domain"
)

type jobView struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	Status      string          `json:"status"`
	Progress    int             `json:"progress"`
	Error       string          `json:"error,omitempty"`
	Output      json.RawMessage `json:"output,omitempty"`
	ProjectID   string          `json:"project_id"`
	RoomID      string          `json:"room_id,omitempty"`
	VariantID   string          `json:"variant_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

func newJobView(j *domain.Job) jobView {
	return jobView{
		ID:          j.ID,
		Type:        string(j.Type),
		Status:      string(j.Status),
		Progress:    j.Progress,
		Error:       j.ErrorMessage,
		Output:      json.RawMessage(j.OutputPayload),
		ProjectID:   j.Scope.ProjectID,
		RoomID:      j.Scope.RoomID,
		VariantID:   j.Scope.VariantID,
		CreatedAt:   j.CreatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}

func newJobViews(list []domain.Job) []jobView {
	views := make([]jobView, 0, len(list))
	for i := range list {
		views = append(views, newJobView(&list[i]))
	}
	return views
}
