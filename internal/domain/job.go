package domain

import "time"

// JobType enumerates supported orchestration job categories. The value is
// immutable after creation and keys the worker route lookup.
type JobType string

const (
	JobTypeDesignGeneration    JobType = "design_generation"
	JobTypeBOMCalculation      JobType = "bom_calculation"
	JobTypeDrawingGeneration   JobType = "drawing_generation"
	JobTypeCutlistGeneration   JobType = "cutlist_generation"
	JobTypeMEPElectrical       JobType = "mep_electrical"
	JobTypeMEPPlumbing         JobType = "mep_plumbing"
	JobTypeMEPHVAC             JobType = "mep_hvac"
	JobTypeScheduleGeneration  JobType = "schedule_generation"
	JobTypeFloorPlanDigitize   JobType = "floor_plan_digitization"
	JobTypeProcurementGenerate JobType = "procurement_generation"
	JobTypeReconstruction      JobType = "reconstruction"
)

var jobTypes = map[JobType]struct{}{
	JobTypeDesignGeneration:    {},
	JobTypeBOMCalculation:      {},
	JobTypeDrawingGeneration:   {},
	JobTypeCutlistGeneration:   {},
	JobTypeMEPElectrical:       {},
	JobTypeMEPPlumbing:         {},
	JobTypeMEPHVAC:             {},
	JobTypeScheduleGeneration:  {},
	JobTypeFloorPlanDigitize:   {},
	JobTypeProcurementGenerate: {},
	JobTypeReconstruction:      {},
}

// ValidJobType reports whether t belongs to the closed set of job types.
func ValidJobType(t JobType) bool {
	_, ok := jobTypes[t]
	return ok
}

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Terminal reports whether no further transitions are valid from s.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// transitions is the explicit lifecycle table. A status absent from the map
// permits nothing. running -> running covers progress-only worker updates;
// failed -> pending is the administrative retry path.
var transitions = map[JobStatus][]JobStatus{
	JobStatusPending: {JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusRunning: {JobStatusRunning, JobStatusCompleted, JobStatusFailed, JobStatusCancelled},
	JobStatusFailed:  {JobStatusPending},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to JobStatus) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// JobScope identifies the business entities a job concerns. ProjectID is
// required; RoomID and VariantID apply only to some job types.
type JobScope struct {
	ProjectID string
	RoomID    string
	VariantID string
}

// Job is the ledger row for one unit of dispatched asynchronous work.
type Job struct {
	ID            string
	Type          JobType
	Status        JobStatus
	Progress      int
	InputSnapshot []byte
	OutputPayload []byte
	ErrorMessage  string
	OwnerID       string
	Scope         JobScope
	CreatedAt     time.Time
	StartedAt     *time.Time
	CompletedAt   *time.Time
}
