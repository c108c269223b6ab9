// Package ingest runs one ingestion session: it stages each archive in
// upload order, normalizes the calendar and mailbox files it finds, and
// writes the combined outputs.
//
// Failures are isolated as narrowly as possible. An archive that cannot be
// staged is skipped, and a file that cannot be parsed contributes no records,
// but the run continues in both cases and the outcome is recorded per archive
// and per file. Only an output write failure, a configuration problem, or
// cancellation aborts the run.
//
// A lock file in the log directory keeps a second session from starting while
// one is in progress. Run history, the Prometheus textfile, and reports are
// written after the outputs and never fail the run.
package ingest
