package task

import (
	"errors"
	"fmt"
)

// Status is the wire-visible lifecycle state of a task.
type Status string

const (
	StatusPendingUploaded     Status = "PENDING_UPLOADED"
	StatusPendingDownloaded   Status = "PENDING_DOWNLOADED"
	StatusPendingDispatch     Status = "PENDING_CELERY_DISPATCH"
	StatusProcessing          Status = "PROCESSING"
	StatusRetrying            Status = "RETRYING" // reserved, never set; counted as active
	StatusCompleted           Status = "COMPLETED"
	StatusCompletedS3Failures Status = "COMPLETED_WITH_S3_UPLOAD_FAILURES"
	StatusFailed              Status = "FAILED"
)

// ErrIllegalTransition is returned when a status change is not in the transition table.
var ErrIllegalTransition = errors.New("illegal status transition")

// transitions lists the allowed next states. Terminal states have no entry.
//
// Pickup may overtake the dispatcher's PENDING_CELERY_DISPATCH write, so the
// ingress states lead straight to PROCESSING too. PROCESSING -> PROCESSING
// is a redelivery after worker loss.
var transitions = map[Status][]Status{
	StatusPendingUploaded:   {StatusPendingDispatch, StatusProcessing, StatusFailed},
	StatusPendingDownloaded: {StatusPendingDispatch, StatusProcessing, StatusFailed},
	StatusPendingDispatch:   {StatusProcessing, StatusFailed},
	StatusRetrying:          {StatusProcessing, StatusFailed},
	StatusProcessing:        {StatusProcessing, StatusCompleted, StatusCompletedS3Failures, StatusFailed},
}

// Valid reports whether s is part of the status vocabulary.
func (s Status) Valid() bool {
	switch s {
	case StatusPendingUploaded, StatusPendingDownloaded, StatusPendingDispatch,
		StatusProcessing, StatusRetrying, StatusCompleted, StatusCompletedS3Failures, StatusFailed:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCompletedS3Failures || s == StatusFailed
}

// IsCompleted reports whether artifacts were produced.
func (s Status) IsCompleted() bool {
	return s == StatusCompleted || s == StatusCompletedS3Failures
}

// IsActive reports whether the task is still waiting for or holding a worker.
func (s Status) IsActive() bool {
	switch s {
	case StatusPendingUploaded, StatusPendingDownloaded, StatusPendingDispatch, StatusProcessing, StatusRetrying:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is in the transition table.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func checkTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
