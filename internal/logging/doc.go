// Package logging assembles structured slog loggers and formatting helpers used
// across lifeingest.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes context-aware helpers so pipeline code can tag log
// lines with the run identifier, archive name, and stage. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
//
// Prefer these constructors over hand-rolled slog setup so warnings carry the
// same event_type, error_hint, and impact fields everywhere.
package logging
