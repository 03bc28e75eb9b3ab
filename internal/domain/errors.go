package domain

import "errors"

var (
	// ErrNotFound covers both a missing job and a job outside the caller's
	// ownership scope; callers cannot tell the two apart.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState means an operation was attempted from a status that
	// does not permit it.
	ErrInvalidState = errors.New("invalid state")

	// ErrNoWorkerRoute means a job type has no dispatch table entry. This is
	// a deployment defect, not a runtime condition to retry.
	ErrNoWorkerRoute = errors.New("no worker route configured")

	// ErrUnknownJobType means the requested type is outside the closed set.
	ErrUnknownJobType = errors.New("unknown job type")
)
