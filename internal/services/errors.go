package services

import (
	"errors"
	"fmt"
	"strings"

	"labelsheet/internal/journal"
)

var (
	// ErrConfiguration marks invalid configuration or malformed input shapes
	// (bad divider usage, unknown column type tokens, unparseable ontologies).
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks inputs that parse but violate preconditions.
	ErrValidation = errors.New("validation error")
	// ErrLookup marks name paths or schema ids absent from an ontology index.
	// These are data-integrity failures, never silently defaulted.
	ErrLookup = errors.New("index lookup miss")
	// ErrTransient marks remote failures that are safe to retry.
	ErrTransient = errors.New("transient failure")
	// ErrTimeout marks remote jobs that exhausted their polling deadline.
	ErrTimeout = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later status classification. The marker should
// be one of the exported sentinel errors above.
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

// FailureStatus maps an upload-stage error to the journal status the
// orchestrator should persist after the stage fails.
func FailureStatus(err error) journal.Status {
	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrValidation), errors.Is(err, ErrLookup):
		return journal.StatusReview
	default:
		return journal.StatusFailed
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
