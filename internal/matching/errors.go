package matching

import (
	"errors"
	"fmt"
)

var (
	ErrNoJobSelected = errors.New("no job selected: select a job description first")
	ErrNoResumes     = errors.New("no resumes available: upload resumes first")
	// ErrRequirements matches every *ExtractionError.
	ErrRequirements = errors.New("job requirements could not be extracted")
)

// ExtractionError means the requirements of a job could not be obtained. A
// matching run cannot continue without them.
type ExtractionError struct {
	Cause error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extract job requirements: %v", e.Cause)
}

func (e *ExtractionError) Unwrap() error { return e.Cause }

func (e *ExtractionError) Is(target error) bool { return target == ErrRequirements }

// ScoringError means one candidate could not be scored.
type ScoringError struct {
	ResumeID string
	Cause    error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("score resume %s: %v", e.ResumeID, e.Cause)
}

func (e *ScoringError) Unwrap() error { return e.Cause }

// ValidationWarning describes a required result field the model left out.
// It is repaired with a default and never fails a call.
type ValidationWarning struct {
	Field   string
	Default any
}

func (w ValidationWarning) String() string {
	return fmt.Sprintf("missing field %q, defaulted to %v", w.Field, w.Default)
}
