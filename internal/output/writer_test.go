package output_test

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"lifeingest/internal/ingesterr"
	"lifeingest/internal/logging"
	"lifeingest/internal/output"
	"lifeingest/internal/record"
	"lifeingest/internal/testsupport"
)

func TestWriteScenarioBytes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writer := output.NewWriter(cfg, logging.NewNop())

	events := []record.CalendarEvent{
		record.NewCalendarEvent("2024-01-02T10:00:00", record.StringPtr("Standup"), "A.zip"),
	}
	emails := []record.EmailHeader{
		record.NewEmailHeader(record.StringPtr("Tue, 2 Jan 2024 10:05:00 +0000"), record.StringPtr("x@y.com"), nil, record.StringPtr("Re: Standup"), "A.zip"),
	}

	blobs, err := writer.Write(events, emails)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	wantEvents := `[
  {
    "type": "calendar_event",
    "timestamp": "2024-01-02T10:00:00",
    "title": "Standup",
    "source": "google_calendar",
    "source_file": "A.zip"
  }
]`
	wantEmails := `[
  {
    "type": "email_header",
    "timestamp": "Tue, 2 Jan 2024 10:05:00 +0000",
    "from": "x@y.com",
    "to": null,
    "subject": "Re: Standup",
    "source": "gmail",
    "source_file": "A.zip"
  }
]`
	if string(blobs.Events) != wantEvents {
		t.Fatalf("events blob:\n%s\nwant:\n%s", blobs.Events, wantEvents)
	}
	if string(blobs.Emails) != wantEmails {
		t.Fatalf("emails blob:\n%s\nwant:\n%s", blobs.Emails, wantEmails)
	}

	onDisk, err := os.ReadFile(cfg.CalendarOutputPath())
	if err != nil {
		t.Fatalf("read events file: %v", err)
	}
	if string(onDisk) != wantEvents {
		t.Fatal("file contents differ from returned blob")
	}
	onDisk, err = os.ReadFile(cfg.EmailOutputPath())
	if err != nil {
		t.Fatalf("read emails file: %v", err)
	}
	if string(onDisk) != wantEmails {
		t.Fatal("file contents differ from returned blob")
	}
}

func TestWriteEmptySequences(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	blobs, err := output.NewWriter(cfg, logging.NewNop()).Write(nil, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if string(blobs.Events) != "[]" || string(blobs.Emails) != "[]" {
		t.Fatalf("expected [] blobs, got %q and %q", blobs.Events, blobs.Emails)
	}
}

func TestWriteDoesNotEscapeHTML(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	events := []record.CalendarEvent{
		record.NewCalendarEvent("2024-01-02", record.StringPtr("R&D <sync> café"), "A.zip"),
	}
	blobs, err := output.NewWriter(cfg, logging.NewNop()).Write(events, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := `"title": "R&D <sync> café"`
	if !strings.Contains(string(blobs.Events), want) {
		t.Fatalf("expected %s in %s", want, blobs.Events)
	}
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	events := []record.CalendarEvent{
		record.NewCalendarEvent("2024-01-02T10:00:00+00:00", record.StringPtr("One"), "A.zip"),
		record.NewCalendarEvent("2024-01-03", nil, "B.zip"),
	}
	emails := []record.EmailHeader{
		record.NewEmailHeader(nil, nil, nil, nil, "A.zip"),
		record.NewEmailHeader(record.StringPtr("d"), record.StringPtr("f"), record.StringPtr("t"), record.StringPtr(""), "B.zip"),
	}

	blobs, err := output.NewWriter(cfg, logging.NewNop()).Write(events, emails)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	var gotEvents []record.CalendarEvent
	if err := json.Unmarshal(blobs.Events, &gotEvents); err != nil {
		t.Fatalf("unmarshal events: %v", err)
	}
	var gotEmails []record.EmailHeader
	if err := json.Unmarshal(blobs.Emails, &gotEmails); err != nil {
		t.Fatalf("unmarshal emails: %v", err)
	}
	if !reflect.DeepEqual(gotEvents, events) {
		t.Fatalf("events round trip mismatch: %+v", gotEvents)
	}
	if !reflect.DeepEqual(gotEmails, emails) {
		t.Fatalf("emails round trip mismatch: %+v", gotEmails)
	}
}

func TestWriteFailureIsOutputWriteError(t *testing.T) {
	base := t.TempDir()
	blocker := filepath.Join(base, "not-a-dir")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatalf("write blocker: %v", err)
	}
	cfg := testsupport.NewConfig(t, testsupport.WithOutputDir(blocker))

	_, err := output.NewWriter(cfg, logging.NewNop()).Write(nil, nil)
	if !errors.Is(err, ingesterr.ErrOutputWrite) {
		t.Fatalf("expected ErrOutputWrite, got %v", err)
	}
	if !ingesterr.Fatal(err) {
		t.Fatal("output failures must be fatal")
	}
}

func TestExportCopiesBlobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	writer := output.NewWriter(cfg, logging.NewNop())
	blobs, err := writer.Write(nil, nil)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "downloads")
	paths, err := writer.Export(dest, blobs)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if paths.Events != filepath.Join(dest, "calendar_events.json") || paths.Emails != filepath.Join(dest, "emails.json") {
		t.Fatalf("unexpected export paths %+v", paths)
	}
	got, err := os.ReadFile(paths.Emails)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if string(got) != "[]" {
		t.Fatalf("unexpected export content %q", got)
	}
}
