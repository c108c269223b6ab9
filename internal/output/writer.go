// Package output serializes session records into the JSON files handed back
// to the user.
package output

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"path/filepath"

	"lifeingest/internal/config"
	"lifeingest/internal/fileutil"
	"lifeingest/internal/ingesterr"
	"lifeingest/internal/logging"
	"lifeingest/internal/record"
)

const stageName = "output"

// Blobs holds the serialized bytes of both output files.
type Blobs struct {
	Events []byte
	Emails []byte
}

// Paths are the locations the blobs were written to.
type Paths struct {
	Events string
	Emails string
}

// Writer writes the calendar and email outputs to fixed paths.
type Writer struct {
	paths  Paths
	logger *slog.Logger
}

// NewWriter targets the output files named by cfg.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Writer{
		paths: Paths{
			Events: cfg.CalendarOutputPath(),
			Emails: cfg.EmailOutputPath(),
		},
		logger: logging.NewComponentLogger(logger, stageName),
	}
}

// Paths returns the output file locations.
func (w *Writer) Paths() Paths { return w.paths }

// Write serializes both sequences, replaces the output files atomically, and
// returns the bytes written. Any failure is wrapped in ErrOutputWrite.
func (w *Writer) Write(events []record.CalendarEvent, emails []record.EmailHeader) (Blobs, error) {
	if events == nil {
		events = []record.CalendarEvent{}
	}
	if emails == nil {
		emails = []record.EmailHeader{}
	}

	eventsBlob, err := Marshal(events)
	if err != nil {
		return Blobs{}, ingesterr.Wrap(ingesterr.ErrOutputWrite, stageName, "encode", "calendar events", err)
	}
	emailsBlob, err := Marshal(emails)
	if err != nil {
		return Blobs{}, ingesterr.Wrap(ingesterr.ErrOutputWrite, stageName, "encode", "emails", err)
	}

	for _, target := range []struct {
		path string
		data []byte
	}{
		{w.paths.Events, eventsBlob},
		{w.paths.Emails, emailsBlob},
	} {
		if err := fileutil.WriteFileAtomic(target.path, target.data, 0o644); err != nil {
			return Blobs{}, ingesterr.Wrap(ingesterr.ErrOutputWrite, stageName, "write", target.path, err)
		}
	}

	w.logger.Info("output written",
		logging.String("events_path", w.paths.Events),
		logging.String("emails_path", w.paths.Emails),
		logging.Int("events", len(events)),
		logging.Int("emails", len(emails)),
		logging.String(logging.FieldEventType, "output_written"),
	)
	return Blobs{Events: eventsBlob, Emails: emailsBlob}, nil
}

// Marshal renders v as 2-space indented JSON without HTML escaping or a
// trailing newline.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Export copies the blobs into dir under the same file names as the outputs.
func (w *Writer) Export(dir string, blobs Blobs) (Paths, error) {
	paths := Paths{
		Events: filepath.Join(dir, filepath.Base(w.paths.Events)),
		Emails: filepath.Join(dir, filepath.Base(w.paths.Emails)),
	}
	if err := fileutil.WriteFileAtomic(paths.Events, blobs.Events, 0o644); err != nil {
		return Paths{}, ingesterr.Wrap(ingesterr.ErrOutputWrite, stageName, "export", paths.Events, err)
	}
	if err := fileutil.WriteFileAtomic(paths.Emails, blobs.Emails, 0o644); err != nil {
		return Paths{}, ingesterr.Wrap(ingesterr.ErrOutputWrite, stageName, "export", paths.Emails, err)
	}
	return paths, nil
}
