package staging_test

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"lifeingest/internal/ingesterr"
	"lifeingest/internal/logging"
	"lifeingest/internal/staging"
	"lifeingest/internal/testsupport"
)

func TestIsolationKeyIsSHA1OfName(t *testing.T) {
	sum := sha1.Sum([]byte("A.zip"))
	if got := staging.IsolationKey("A.zip"); got != hex.EncodeToString(sum[:]) {
		t.Fatalf("unexpected key %q", got)
	}
	if staging.IsolationKey("A.zip") == staging.IsolationKey("B.zip") {
		t.Fatal("expected distinct keys for distinct names")
	}
	if got := staging.IsolationKey(""); got != "da39a3ee5e6b4b0d3255bfef95601890afd80709" {
		t.Fatalf("unexpected key for empty name %q", got)
	}
}

func TestStageExtractsArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	data := testsupport.BuildZip(t,
		testsupport.ZipEntry{Name: "Takeout/"},
		testsupport.ZipEntry{Name: "Takeout/Calendar/work.ics", Body: "cal"},
		testsupport.ZipEntry{Name: "Takeout/Mail/All.mbox", Body: "mail"},
	)
	job, err := stager.Stage(context.Background(), staging.Upload{Name: "A.zip", Data: data})
	if err != nil {
		t.Fatalf("Stage: %v", err)
	}

	key := staging.IsolationKey("A.zip")
	if job.IsolationKey != key || job.Name != "A.zip" {
		t.Fatalf("unexpected job %+v", job)
	}
	if job.UploadPath != filepath.Join(cfg.Paths.UploadDir, key+".zip") {
		t.Fatalf("unexpected upload path %s", job.UploadPath)
	}
	if job.ExtractDir != filepath.Join(cfg.Paths.ExtractDir, key) {
		t.Fatalf("unexpected extract dir %s", job.ExtractDir)
	}
	if job.Files != 2 || job.Bytes != int64(len(data)) {
		t.Fatalf("files=%d bytes=%d", job.Files, job.Bytes)
	}
	got, err := os.ReadFile(filepath.Join(job.ExtractDir, "Takeout", "Mail", "All.mbox"))
	if err != nil {
		t.Fatalf("read extracted file: %v", err)
	}
	if string(got) != "mail" {
		t.Fatalf("unexpected content %q", got)
	}
}

func TestStageIsIdempotentForSameName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())
	ctx := context.Background()

	first := testsupport.BuildZip(t, testsupport.ZipEntry{Name: "x.ics", Body: "one"})
	second := testsupport.BuildZip(t, testsupport.ZipEntry{Name: "x.ics", Body: "two"})

	job1, err := stager.Stage(ctx, staging.Upload{Name: "A.zip", Data: first})
	if err != nil {
		t.Fatalf("first Stage: %v", err)
	}
	job2, err := stager.Stage(ctx, staging.Upload{Name: "A.zip", Data: second})
	if err != nil {
		t.Fatalf("second Stage: %v", err)
	}
	if job1.ExtractDir != job2.ExtractDir {
		t.Fatalf("expected same extraction dir, got %s and %s", job1.ExtractDir, job2.ExtractDir)
	}
	got, err := os.ReadFile(filepath.Join(job2.ExtractDir, "x.ics"))
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got) != "two" {
		t.Fatalf("expected overwrite, got %q", got)
	}
	entries, err := os.ReadDir(cfg.Paths.ExtractDir)
	if err != nil {
		t.Fatalf("read extract root: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected a single extraction dir, got %d", len(entries))
	}
}

func TestStageRejectsInvalidArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	_, err := stager.Stage(context.Background(), staging.Upload{Name: "broken.zip", Data: []byte("not a zip")})
	if !errors.Is(err, ingesterr.ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
}

func TestStageRejectsEscapingEntries(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	data := testsupport.BuildZip(t, testsupport.ZipEntry{Name: "../../evil.ics", Body: "x"})
	_, err := stager.Stage(context.Background(), staging.Upload{Name: "evil.zip", Data: data})
	if !errors.Is(err, ingesterr.ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(testsupport.BaseDir(cfg), "evil.ics")); !os.IsNotExist(statErr) {
		t.Fatal("entry escaped the extraction root")
	}
}

func TestStageRejectsEmptyName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	_, err := stager.Stage(context.Background(), staging.Upload{Name: " ", Data: nil})
	if !errors.Is(err, ingesterr.ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
}

func TestStageFileUsesBaseName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	src := testsupport.WriteZip(t, filepath.Join(t.TempDir(), "in", "takeout-001.zip"),
		testsupport.ZipEntry{Name: "Takeout/Calendar/a.ics", Body: "cal"},
	)
	job, err := stager.StageFile(context.Background(), src)
	if err != nil {
		t.Fatalf("StageFile: %v", err)
	}
	if job.Name != "takeout-001.zip" || job.IsolationKey != staging.IsolationKey("takeout-001.zip") {
		t.Fatalf("unexpected job %+v", job)
	}
	if _, err := os.Stat(job.UploadPath); err != nil {
		t.Fatalf("expected persisted upload: %v", err)
	}
	if _, err := os.Stat(job.UploadPath + ".part"); !os.IsNotExist(err) {
		t.Fatal("partial copy should have been renamed")
	}
}

func TestStageFileMissingSourceIsInvalidArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	_, err := stager.StageFile(context.Background(), filepath.Join(t.TempDir(), "missing.zip"))
	if !errors.Is(err, ingesterr.ErrInvalidArchive) {
		t.Fatalf("expected ErrInvalidArchive, got %v", err)
	}
}

func TestStageHonorsCancellation(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	stager := staging.NewStager(cfg, logging.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	data := testsupport.BuildZip(t, testsupport.ZipEntry{Name: "a.ics", Body: "x"})
	if _, err := stager.Stage(ctx, staging.Upload{Name: "A.zip", Data: data}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
