package metrics_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"lifeingest/internal/metrics"
)

func TestRecorderWritesTextfile(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.ObserveArchive(false, 120*time.Millisecond)
	rec.ObserveArchive(true, 5*time.Millisecond)
	rec.ObserveFile("calendar", false)
	rec.ObserveFile("mailbox", true)
	rec.SetRecords("calendar_event", 3)
	rec.SetRecords("email_header", 0)
	started := time.Unix(1704189600, 0)
	rec.Finish(started, started.Add(2*time.Second), true)

	path := filepath.Join(t.TempDir(), "textfile", "lifeingest.prom")
	if err := rec.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		`lifeingest_archives{status="ok"} 1`,
		`lifeingest_archives{status="failed"} 1`,
		`lifeingest_files{category="mailbox",status="failed"} 1`,
		`lifeingest_records{kind="calendar_event"} 3`,
		`lifeingest_last_run_duration_seconds 2`,
		`lifeingest_last_run_success 1`,
		`lifeingest_archive_duration_seconds_count 2`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("textfile missing %q:\n%s", want, text)
		}
	}
}

func TestRecorderFailureFlag(t *testing.T) {
	rec := metrics.NewRecorder()
	now := time.Now()
	rec.Finish(now, now, false)

	count, err := testutil.GatherAndCount(rec.Registry(), "lifeingest_last_run_success")
	if err != nil {
		t.Fatalf("GatherAndCount: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one series, got %d", count)
	}
	if err := testutil.GatherAndCompare(rec.Registry(), strings.NewReader(`
# HELP lifeingest_last_run_success 1 if the last run wrote its outputs, 0 otherwise.
# TYPE lifeingest_last_run_success gauge
lifeingest_last_run_success 0
`), "lifeingest_last_run_success"); err != nil {
		t.Fatalf("unexpected metric: %v", err)
	}
}
