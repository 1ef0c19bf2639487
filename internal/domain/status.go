package domain

import "fmt"

// VideoStatus is the lifecycle state of a video job.
type VideoStatus string

const (
	VideoStatusPending     VideoStatus = "PENDING"
	VideoStatusInitialized VideoStatus = "INITIALIZED"
	VideoStatusInProgress  VideoStatus = "IN_PROGRESS"
	VideoStatusSuccess     VideoStatus = "SUCCESS"
	VideoStatusFailed      VideoStatus = "FAILED"
	VideoStatusFlagged     VideoStatus = "FLAGGED"
	VideoStatusHalted      VideoStatus = "HALTED"
	VideoStatusDeleted     VideoStatus = "DELETED"
)

// BlockedStartStatuses are the statuses a job cannot be (re)started from.
var BlockedStartStatuses = []VideoStatus{
	VideoStatusDeleted,
	VideoStatusFlagged,
	VideoStatusHalted,
	VideoStatusInProgress,
	VideoStatusSuccess,
}

// ExternalStopStatuses are set by operators, never by the pipeline.
// Pipeline writes must not overwrite them.
var ExternalStopStatuses = []VideoStatus{VideoStatusHalted, VideoStatusDeleted}

// CanStart reports whether a job in status s may be moved to IN_PROGRESS.
func (s VideoStatus) CanStart() bool {
	switch s {
	case VideoStatusPending, VideoStatusInitialized, VideoStatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal is true for statuses the pipeline never leaves on its own.
func (s VideoStatus) IsTerminal() bool {
	switch s {
	case VideoStatusSuccess, VideoStatusFailed, VideoStatusFlagged, VideoStatusHalted, VideoStatusDeleted:
		return true
	default:
		return false
	}
}

var transitions = map[VideoStatus][]VideoStatus{
	VideoStatusPending:     {VideoStatusInProgress, VideoStatusFlagged},
	VideoStatusInitialized: {VideoStatusInProgress, VideoStatusFlagged},
	VideoStatusFailed:      {VideoStatusInProgress, VideoStatusFlagged},
	VideoStatusInProgress:  {VideoStatusSuccess, VideoStatusFailed},
}

// CanTransition reports whether the pipeline may move a job from s to next.
// HALTED and DELETED are reachable from anywhere, but only from outside the pipeline.
func (s VideoStatus) CanTransition(next VideoStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// StartRejectedError is returned when a start request hits a blocked status.
type StartRejectedError struct {
	Status VideoStatus
}

func (e *StartRejectedError) Error() string {
	return fmt.Sprintf("Cannot proceed because video status is %q", string(e.Status))
}

// StatusStrings converts statuses for use in SQL IN clauses.
func StatusStrings(in []VideoStatus) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, string(s))
	}
	return out
}
