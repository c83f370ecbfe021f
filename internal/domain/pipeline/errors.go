package pipeline

import (
	"errors"
	"fmt"

	detect "github.com/okian/epocher/internal/domain/detect"
)

var (
	ErrMissingRecording = errors.New("missing recording")
	ErrMissingCondition = errors.New("missing condition")
	ErrMissingChannel   = errors.New("missing channel")
)

// ConditionError ties a failure to the condition it aborted.
type ConditionError struct {
	Condition string
	Err       error
}

func (e *ConditionError) Error() string {
	return fmt.Sprintf("condition %q: %v", e.Condition, e.Err)
}

func (e *ConditionError) Unwrap() error { return e.Err }

// IsWarning reports whether err only means the condition does not occur in
// the recording. Such conditions are skipped rather than failed.
func IsWarning(err error) bool {
	return errors.Is(err, detect.ErrNoMatchingEvents)
}
