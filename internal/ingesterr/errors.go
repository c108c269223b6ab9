// Package ingesterr defines the error markers used across the ingestion
// pipeline and helpers to classify them for history rows and reports.
package ingesterr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidArchive          = errors.New("invalid archive")
	ErrUnparseableCalendarFile = errors.New("unparseable calendar file")
	ErrUnparseableMailboxFile  = errors.New("unparseable mailbox file")
	ErrOutputWrite             = errors.New("output write failure")
	ErrConfiguration           = errors.New("configuration error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		return fmt.Errorf("%s: %w", detail, err)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Kind returns a stable identifier for the marker carried by err, or "" for nil.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArchive):
		return "invalid_archive"
	case errors.Is(err, ErrUnparseableCalendarFile):
		return "unparseable_calendar_file"
	case errors.Is(err, ErrUnparseableMailboxFile):
		return "unparseable_mailbox_file"
	case errors.Is(err, ErrOutputWrite):
		return "output_write_failure"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	default:
		return "unknown"
	}
}

// Fatal reports whether err must abort the whole run rather than being
// downgraded to a diagnostic.
func Fatal(err error) bool {
	return errors.Is(err, ErrOutputWrite) || errors.Is(err, ErrConfiguration)
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
		return "ingest failure"
	}
	return strings.Join(parts, ": ")
}
