package domain

import (
	"github.com/anonymort/whistle/internal/errors"
)

var (
	// ErrSubmissionNotFound indicates the submission does not exist.
	ErrSubmissionNotFound = errors.Wrap(errors.ErrNotFound, "submission not found")

	// ErrConflictingFile indicates both a sealed file and a plaintext file were sent.
	ErrConflictingFile = errors.Wrap(errors.ErrInvalidInput, "send either fileEnvelope or file, not both")

	// ErrInvalidPriority indicates an unknown priority value.
	ErrInvalidPriority = errors.Wrap(errors.ErrInvalidInput, "invalid priority")
)

// ParsePriority validates a priority. Empty means routine.
func ParsePriority(value string) (Priority, error) {
	switch Priority(value) {
	case "":
		return PriorityRoutine, nil
	case PriorityRoutine, PriorityUrgent:
		return Priority(value), nil
	default:
		return "", ErrInvalidPriority
	}
}
