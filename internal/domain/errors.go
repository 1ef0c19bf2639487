package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures.
type ErrorKind string

const (
	KindValidation      ErrorKind = "validation_failure"
	KindExternalService ErrorKind = "external_service_failure"
	KindModeration      ErrorKind = "moderation_rejection"
	KindAdmissionDenied ErrorKind = "admission_denied"
	KindRetryExhausted  ErrorKind = "retry_exhausted"
)

// PipelineError carries the kind, the stage that raised it and the attempt number.
type PipelineError struct {
	Kind    ErrorKind
	Stage   string
	Attempt int
	Err     error
}

func (e *PipelineError) Error() string {
	if e == nil {
		return ""
	}
	msg := "<nil>"
	if e.Err != nil {
		msg = e.Err.Error()
	}
	switch {
	case e.Stage != "" && e.Attempt > 0:
		return fmt.Sprintf("%s: stage %s attempt %d: %s", e.Kind, e.Stage, e.Attempt, msg)
	case e.Stage != "":
		return fmt.Sprintf("%s: stage %s: %s", e.Kind, e.Stage, msg)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, msg)
	}
}

func (e *PipelineError) Unwrap() error { return e.Err }

func NewValidationError(stage string, err error) *PipelineError {
	return &PipelineError{Kind: KindValidation, Stage: stage, Err: err}
}

func NewExternalError(stage string, err error) *PipelineError {
	return &PipelineError{Kind: KindExternalService, Stage: stage, Err: err}
}

// KindOf returns the kind of the outermost PipelineError in err's chain, or "".
func KindOf(err error) ErrorKind {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}

// Cause returns the innermost non-pipeline cause, which is what gets written
// to the job record.
func Cause(err error) error {
	for {
		var pe *PipelineError
		if !errors.As(err, &pe) || pe.Err == nil {
			return err
		}
		err = pe.Err
	}
}

var (
	ErrModerationFlagged   = errors.New("Your request was flagged by OpenAI. Your account is at the risk of being permanently banned.")
	ErrInsufficientCredits = errors.New("not enough credits to create a video")
	ErrCustomerBanned      = errors.New("customer is banned")
)
