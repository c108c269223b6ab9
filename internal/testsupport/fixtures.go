package testsupport

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// ZipEntry is one file placed into a fixture archive. A name ending in "/"
// produces a directory entry.
type ZipEntry struct {
	Name string
	Body string
}

// BuildZip returns archive bytes holding entries in order.
func BuildZip(t testing.TB, entries ...ZipEntry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, entry := range entries {
		w, err := zw.Create(entry.Name)
		if err != nil {
			t.Fatalf("zip create %s: %v", entry.Name, err)
		}
		if strings.HasSuffix(entry.Name, "/") {
			continue
		}
		if _, err := w.Write([]byte(entry.Body)); err != nil {
			t.Fatalf("zip write %s: %v", entry.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// WriteZip writes a fixture archive to path and returns the path.
func WriteZip(t testing.TB, path string, entries ...ZipEntry) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, BuildZip(t, entries...), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Calendar wraps component text in a VCALENDAR with CRLF line endings.
// Each component is given as LF-separated lines.
func Calendar(components ...string) string {
	lines := []string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//Google Inc//Google Calendar 70.9054//EN"}
	for _, component := range components {
		lines = append(lines, strings.Split(strings.TrimSpace(component), "\n")...)
	}
	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n") + "\r\n"
}

// Event renders a VEVENT. dtstart is the full property line without the
// "DTSTART" name, e.g. ":20240301T090000Z" or ";VALUE=DATE:20240301".
// An empty summary omits the SUMMARY property.
func Event(uid, dtstart, summary string) string {
	lines := []string{"BEGIN:VEVENT", "UID:" + uid, "DTSTAMP:20240101T000000Z"}
	if dtstart != "" {
		lines = append(lines, "DTSTART"+dtstart)
	}
	if summary != "" {
		lines = append(lines, "SUMMARY:"+summary)
	}
	lines = append(lines, "END:VEVENT")
	return strings.Join(lines, "\n")
}

// Header is one mail header line.
type Header struct {
	Name  string
	Value string
}

// Message renders one mbox message including its "From " separator line.
func Message(headers []Header, body string) string {
	var b strings.Builder
	b.WriteString("From MAILER-DAEMON Thu Jan  1 00:00:00 2024\n")
	for _, h := range headers {
		b.WriteString(h.Name)
		b.WriteString(": ")
		b.WriteString(h.Value)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("\n")
	return b.String()
}

// Mailbox concatenates rendered messages.
func Mailbox(messages ...string) string {
	return strings.Join(messages, "")
}
