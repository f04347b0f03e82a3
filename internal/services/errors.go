package services

import (
	"errors"
	"fmt"
	"strings"

	"adiengine/internal/queue"
)

var (
	ErrImportFailure      = errors.New("import failure")
	ErrMappingUnavailable = errors.New("mapping unavailable")
	ErrPolicyRejection    = errors.New("policy rejection")
	ErrVersionConflict    = errors.New("version conflict")
	ErrEnrichmentFailure  = errors.New("enrichment failure")
	ErrSweepFailure       = errors.New("sweep failure")
	ErrConfiguration      = errors.New("configuration error")
	ErrTransient          = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return strings.Join(parts, ": ")
}

// FailureStatus maps a stage error to the queue status the workflow manager
// should persist after the stage fails.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrPolicyRejection), errors.Is(err, ErrVersionConflict):
		return queue.StatusRejected
	case errors.Is(err, ErrMappingUnavailable):
		return queue.StatusFailedToMap
	default:
		return queue.StatusFailed
	}
}

// Details describes the human-readable portion of a wrapped stage error.
type ErrorDetails struct {
	Message string
}

// Details extracts the detail portion of an error produced by Wrap. Errors
// from other sources are returned verbatim.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{}
	}
	msg := err.Error()
	for _, marker := range []error{
		ErrImportFailure,
		ErrMappingUnavailable,
		ErrPolicyRejection,
		ErrVersionConflict,
		ErrEnrichmentFailure,
		ErrSweepFailure,
		ErrConfiguration,
		ErrTransient,
	} {
		prefix := marker.Error() + ": "
		if strings.HasPrefix(msg, prefix) {
			return ErrorDetails{Message: strings.TrimPrefix(msg, prefix)}
		}
	}
	return ErrorDetails{Message: msg}
}
