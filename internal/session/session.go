// Package session accumulates the records produced by one ingestion run.
package session

import (
	"time"

	"lifeingest/internal/discovery"
	"lifeingest/internal/ingesterr"
	"lifeingest/internal/record"
)

// FileResult is the outcome of normalizing one discovered file.
type FileResult struct {
	Path     string
	Category discovery.Category
	Records  int
	Err      error
}

// Failed reports whether the file was rejected.
func (r FileResult) Failed() bool { return r.Err != nil }

// ArchiveResult is the outcome of staging and normalizing one archive.
type ArchiveResult struct {
	Name         string
	IsolationKey string
	ExtractDir   string
	Err          error
	Files        []FileResult
	Events       int
	Emails       int
	Duration     time.Duration
}

// Failed reports whether the archive was skipped entirely.
func (r ArchiveResult) Failed() bool { return r.Err != nil }

// FailedFiles counts the files in the archive that could not be normalized.
func (r ArchiveResult) FailedFiles() int {
	n := 0
	for _, f := range r.Files {
		if f.Failed() {
			n++
		}
	}
	return n
}

// ErrorKind returns the classification of the archive-level error, if any.
func (r ArchiveResult) ErrorKind() string { return ingesterr.Kind(r.Err) }

// Totals summarizes a session.
type Totals struct {
	Archives       int
	FailedArchives int
	Files          int
	FailedFiles    int
	Events         int
	Emails         int
}

// Session holds the ordered event and email sequences plus per-archive
// results. Sequences are append-only with no deduplication. A Session is not
// safe for concurrent use.
type Session struct {
	events   []record.CalendarEvent
	emails   []record.EmailHeader
	archives []ArchiveResult
}

// New returns an empty session.
func New() *Session {
	s := &Session{}
	s.Reset()
	return s
}

// Append adds a record to the sequence matching its kind.
func (s *Session) Append(r record.Record) {
	switch v := r.(type) {
	case record.CalendarEvent:
		s.events = append(s.events, v)
	case *record.CalendarEvent:
		s.events = append(s.events, *v)
	case record.EmailHeader:
		s.emails = append(s.emails, v)
	case *record.EmailHeader:
		s.emails = append(s.emails, *v)
	}
}

// AppendEvents adds calendar events in order.
func (s *Session) AppendEvents(events []record.CalendarEvent) {
	s.events = append(s.events, events...)
}

// AppendEmails adds email headers in order.
func (s *Session) AppendEmails(emails []record.EmailHeader) {
	s.emails = append(s.emails, emails...)
}

// Events returns a copy of the accumulated calendar events.
func (s *Session) Events() []record.CalendarEvent {
	out := make([]record.CalendarEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Emails returns a copy of the accumulated email headers.
func (s *Session) Emails() []record.EmailHeader {
	out := make([]record.EmailHeader, len(s.emails))
	copy(out, s.emails)
	return out
}

// AddArchive records the outcome of one archive.
func (s *Session) AddArchive(result ArchiveResult) {
	s.archives = append(s.archives, result)
}

// Archives returns the per-archive results in processing order.
func (s *Session) Archives() []ArchiveResult {
	out := make([]ArchiveResult, len(s.archives))
	copy(out, s.archives)
	return out
}

// Reset clears all accumulated state.
func (s *Session) Reset() {
	s.events = make([]record.CalendarEvent, 0)
	s.emails = make([]record.EmailHeader, 0)
	s.archives = nil
}

// Totals aggregates counts across archives.
func (s *Session) Totals() Totals {
	t := Totals{
		Archives: len(s.archives),
		Events:   len(s.events),
		Emails:   len(s.emails),
	}
	for _, a := range s.archives {
		if a.Failed() {
			t.FailedArchives++
		}
		t.Files += len(a.Files)
		t.FailedFiles += a.FailedFiles()
	}
	return t
}
