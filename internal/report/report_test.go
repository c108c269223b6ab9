package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"lifeingest/internal/history"
	"lifeingest/internal/report"
)

func sampleDetail() history.RunDetail {
	started := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)
	return history.RunDetail{
		Run: history.Run{
			ID:         "run-1",
			StartedAt:  started,
			FinishedAt: started.Add(time.Second),
			Status:     history.RunSucceeded,
			Archives:   1,
			Files:      2,
			Events:     1,
			Emails:     1,
		},
		Results: []history.Archive{{
			Name:         "A.zip",
			IsolationKey: "key",
			Status:       history.ArchiveProcessed,
			Files:        2,
			Events:       1,
			Emails:       1,
			Entries: []history.File{
				{Path: "cal1.ics", Category: "calendar", Records: 1},
				{Path: "mail1.mbox", Category: "mailbox", Records: 1},
			},
		}},
	}
}

func TestFormatFromPath(t *testing.T) {
	cases := map[string]report.Format{
		"run.json":     report.FormatJSON,
		"run.yaml":     report.FormatYAML,
		"run.YML":      report.FormatYAML,
		"dir/run.Json": report.FormatJSON,
	}
	for path, want := range cases {
		got, err := report.FormatFromPath(path)
		if err != nil || got != want {
			t.Errorf("FormatFromPath(%q) = %q, %v; want %q", path, got, err, want)
		}
	}
	for _, bad := range []string{"run", "run.txt"} {
		if _, err := report.FormatFromPath(bad); err == nil {
			t.Errorf("expected error for %q", bad)
		}
	}
}

func TestWriteFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := report.WriteFile(path, sampleDetail()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["id"] != "run-1" || decoded["status"] != "succeeded" {
		t.Fatalf("unexpected report %v", decoded)
	}
	results, ok := decoded["archive_results"].([]any)
	if !ok || len(results) != 1 {
		t.Fatalf("expected one archive result, got %v", decoded["archive_results"])
	}
}

func TestWriteFileYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.yaml")
	if err := report.WriteFile(path, sampleDetail()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var decoded struct {
		ID       string `yaml:"id"`
		Events   int    `yaml:"events"`
		Archives []struct {
			Name    string `yaml:"name"`
			Entries []struct {
				Path string `yaml:"path"`
			} `yaml:"entries"`
		} `yaml:"archive_results"`
	}
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.ID != "run-1" || decoded.Events != 1 {
		t.Fatalf("unexpected report %+v", decoded)
	}
	if len(decoded.Archives) != 1 || len(decoded.Archives[0].Entries) != 2 || decoded.Archives[0].Entries[1].Path != "mail1.mbox" {
		t.Fatalf("unexpected archives %+v", decoded.Archives)
	}
	if !bytes.Contains(data, []byte("name: A.zip")) {
		t.Fatalf("expected archive list in yaml:\n%s", data)
	}
}

func TestEncodeRejectsUnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	if err := report.Encode(&buf, report.Format("xml"), sampleDetail()); err == nil {
		t.Fatal("expected error")
	}
	if _, err := report.ParseFormat("toml"); err == nil {
		t.Fatal("expected error")
	}
}
