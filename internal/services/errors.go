package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation marks locally detected bad input, rejected before any
	// gateway call is issued.
	ErrValidation = errors.New("validation error")
	// ErrExternalCall marks a failure reported by (or reaching) the external
	// processing service.
	ErrExternalCall = errors.New("external call error")
	// ErrConflict marks an operation requested for a stage or item that is
	// already in progress.
	ErrConflict = errors.New("conflict error")
	// ErrNotFound marks a reference to a sentence or artifact that does not
	// exist in the active session.
	ErrNotFound = errors.New("not found")
	// ErrConfiguration marks invalid or missing configuration.
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrExternalCall
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
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
