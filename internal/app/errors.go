package service

import (
	"errors"
)

// Sentinel kinds for service errors. Callers classify failures with
// errors.Is and decide whether a retry can succeed.
var (
	// ErrValidation marks a submission or request that can never succeed
	// as given.
	ErrValidation = errors.New("invalid request")

	// ErrDuplicate marks a submission id that was already applied.
	ErrDuplicate = errors.New("duplicate submission")

	// ErrTransient marks a submission that kept losing the write race
	// and may succeed when retried later.
	ErrTransient = errors.New("transient failure, retry later")

	// ErrStorage marks a durable store failure.
	ErrStorage = errors.New("storage failure")

	// ErrNoMedia marks a selection request against an empty catalog.
	ErrNoMedia = errors.New("no media available")

	// ErrNotStarted marks use of the service before Start.
	ErrNotStarted = errors.New("service not started")
)
