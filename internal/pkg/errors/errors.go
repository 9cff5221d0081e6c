package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalid              = errors.New("invalid")
	ErrNotFound             = errors.New("not found")
	ErrTooMany              = errors.New("too many requests")
	ErrInternal             = errors.New("internal")
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	ErrGenerationFailed     = errors.New("generation failed")
	ErrValidationRejected   = errors.New("validation rejected")
	ErrExecutionFailed      = errors.New("execution failed")
	ErrResultTooLarge       = errors.New("result too large")
	ErrSynthesisFailed      = errors.New("synthesis failed")
	ErrInvariantViolation   = errors.New("internal invariant violation")
)

// StageError records the pipeline stage a run failed in together with the
// taxonomy sentinel it maps to. Callers match with errors.Is.
type StageError struct {
	Stage  string
	Kind   error
	Reason string
	Err    error
}

func NewStageError(stage string, kind error, reason string, err error) *StageError {
	return &StageError{Stage: stage, Kind: kind, Reason: reason, Err: err}
}

func (e *StageError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %v: %s", e.Stage, e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
}

func (e *StageError) Is(target error) bool {
	return errors.Is(e.Kind, target)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func IsValidationRejected(err error) bool {
	return errors.Is(err, ErrValidationRejected)
}

func IsInvariantViolation(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
