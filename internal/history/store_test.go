package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"lifeingest/internal/history"
	"lifeingest/internal/testsupport"
)

func openStore(t *testing.T) *history.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithHistory())
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

func sampleRun(id string, started time.Time) history.RunDetail {
	return history.RunDetail{
		Run: history.Run{
			ID:             id,
			StartedAt:      started,
			FinishedAt:     started.Add(1500 * time.Millisecond),
			Status:         history.RunPartial,
			Archives:       2,
			FailedArchives: 1,
			Files:          2,
			FailedFiles:    1,
			Events:         3,
			EventsPath:     "/out/calendar_events.json",
			EmailsPath:     "/out/emails.json",
		},
		Results: []history.Archive{
			{
				Position:     0,
				Name:         "A.zip",
				IsolationKey: "key-a",
				ExtractDir:   "/x/key-a",
				Status:       history.ArchiveProcessed,
				Files:        2,
				FailedFiles:  1,
				Events:       3,
				DurationMS:   40,
				Entries: []history.File{
					{Path: "Takeout/cal.ics", Category: "calendar", Records: 3},
					{Path: "Takeout/bad.mbox", Category: "mailbox", ErrorKind: "unparseable_mailbox_file", ErrorMessage: "boom"},
				},
			},
			{
				Position:     1,
				Name:         "B.zip",
				IsolationKey: "key-b",
				Status:       history.ArchiveSkipped,
				ErrorKind:    "invalid_archive",
				ErrorMessage: "zip: not a valid zip file",
			},
		},
	}
}

func TestRecordAndGetRun(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	started := time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

	if err := store.RecordRun(ctx, sampleRun("run-1", started)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	detail, err := store.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !detail.StartedAt.Equal(started) || detail.Duration() != 1500*time.Millisecond {
		t.Fatalf("unexpected timing %v / %v", detail.StartedAt, detail.Duration())
	}
	if detail.Status != history.RunPartial || detail.Events != 3 || detail.FailedArchives != 1 {
		t.Fatalf("unexpected run %+v", detail.Run)
	}
	if len(detail.Results) != 2 {
		t.Fatalf("expected 2 archives, got %d", len(detail.Results))
	}
	a := detail.Results[0]
	if a.Name != "A.zip" || len(a.Entries) != 2 || a.Entries[1].ErrorKind != "unparseable_mailbox_file" {
		t.Fatalf("unexpected first archive %+v", a)
	}
	b := detail.Results[1]
	if b.Status != history.ArchiveSkipped || b.ErrorKind != "invalid_archive" || len(b.Entries) != 0 {
		t.Fatalf("unexpected second archive %+v", b)
	}
}

func TestGetRunByPrefixAndMissing(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := store.RecordRun(ctx, sampleRun("abc-111", now)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.RecordRun(ctx, sampleRun("abc-222", now.Add(time.Second))); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	detail, err := store.GetRun(ctx, "abc-2")
	if err != nil || detail.ID != "abc-222" {
		t.Fatalf("prefix lookup failed: %v %+v", err, detail)
	}
	if _, err := store.GetRun(ctx, "abc"); err == nil {
		t.Fatal("expected ambiguous prefix error")
	}
	if _, err := store.GetRun(ctx, "zzz"); !errors.Is(err, history.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	for i, id := range []string{"first", "second", "third"} {
		if err := store.RecordRun(ctx, sampleRun(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := store.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "third" || runs[1].ID != "second" {
		t.Fatalf("unexpected runs %+v", runs)
	}

	all, err := store.ListRuns(ctx, 0)
	if err != nil || len(all) != 3 {
		t.Fatalf("expected all runs, got %d (%v)", len(all), err)
	}
}

func TestRecordRunRejectsDuplicateID(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	if err := store.RecordRun(ctx, sampleRun("dup", time.Now())); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if err := store.RecordRun(ctx, sampleRun("dup", time.Now())); err == nil {
		t.Fatal("expected duplicate id to fail")
	}
	if err := store.RecordRun(ctx, history.RunDetail{}); err == nil {
		t.Fatal("expected missing id to fail")
	}
}

func TestArchiveNamesAndPrune(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	old := time.Now().Add(-48 * time.Hour)

	if err := store.RecordRun(ctx, sampleRun("old", old)); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	names, err := store.ArchiveNames(ctx)
	if err != nil {
		t.Fatalf("ArchiveNames: %v", err)
	}
	if names["key-a"] != "A.zip" || names["key-b"] != "B.zip" {
		t.Fatalf("unexpected names %v", names)
	}

	removed, err := store.PruneBefore(ctx, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("PruneBefore: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 pruned run, got %d", removed)
	}
	names, err = store.ArchiveNames(ctx)
	if err != nil {
		t.Fatalf("ArchiveNames: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected cascade delete, got %v", names)
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithHistory())
	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := store.RecordRun(context.Background(), sampleRun("persisted", time.Now())); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	if store.Path() != filepath.Join(testsupport.BaseDir(cfg), "logs", "history.db") {
		t.Fatalf("unexpected path %s", store.Path())
	}
	store.Close()

	reopened, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	runs, err := reopened.ListRuns(context.Background(), 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected persisted run, got %d (%v)", len(runs), err)
	}
}
