package discovery_test

import (
	"os"
	"path/filepath"
	"testing"

	"lifeingest/internal/discovery"
)

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, rel := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		path string
		want discovery.Category
	}{
		{"Takeout/Calendar/work.ics", discovery.Calendar},
		{"Takeout/Mail/All mail.mbox", discovery.Mailbox},
		{"events.ICS", discovery.Ignored},
		{"mail.MBOX", discovery.Ignored},
		{"archive_browser.html", discovery.Ignored},
		{"notes.ics.txt", discovery.Ignored},
		{".ics", discovery.Calendar},
	}
	for _, tc := range cases {
		if got := discovery.Classify(tc.path); got != tc.want {
			t.Errorf("Classify(%q) = %v, want %v", tc.path, got, tc.want)
		}
	}
}

func TestCategoryString(t *testing.T) {
	if discovery.Calendar.String() != "calendar" || discovery.Mailbox.String() != "mailbox" || discovery.Ignored.String() != "ignored" {
		t.Fatal("unexpected category labels")
	}
}

func TestWalkYieldsMatchingFilesInLexicalOrder(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root,
		"Takeout/Mail/All mail.mbox",
		"Takeout/Calendar/b.ics",
		"Takeout/Calendar/a.ics",
		"Takeout/Calendar/README.txt",
		"Takeout/Calendar/UPPER.ICS",
		"Takeout/archive_browser.html",
	)

	var got []string
	for entry, err := range discovery.Walk(root) {
		if err != nil {
			t.Fatalf("walk error: %v", err)
		}
		rel, _ := filepath.Rel(root, entry.Path)
		got = append(got, filepath.ToSlash(rel)+"|"+entry.Category.String())
	}

	want := []string{
		"Takeout/Calendar/a.ics|calendar",
		"Takeout/Calendar/b.ics|calendar",
		"Takeout/Mail/All mail.mbox|mailbox",
	}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("entry %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestWalkStopsWhenConsumerBreaks(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a.ics", "b.ics", "c.ics")

	count := 0
	for range discovery.Walk(root) {
		count++
		break
	}
	if count != 1 {
		t.Fatalf("expected a single iteration, got %d", count)
	}
}

func TestWalkMissingRootYieldsError(t *testing.T) {
	var errs int
	for _, err := range discovery.Walk(filepath.Join(t.TempDir(), "missing")) {
		if err != nil {
			errs++
		}
	}
	if errs != 1 {
		t.Fatalf("expected one error, got %d", errs)
	}
}

func TestPartitionEmptyTree(t *testing.T) {
	calendars, mailboxes, errs := discovery.Partition(t.TempDir())
	if len(calendars) != 0 || len(mailboxes) != 0 || len(errs) != 0 {
		t.Fatalf("expected nothing, got %v %v %v", calendars, mailboxes, errs)
	}
}

func TestPartitionSeparatesCategories(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "m/one.mbox", "c/one.ics", "c/two.ics", "z/two.mbox")

	calendars, mailboxes, errs := discovery.Partition(root)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(calendars) != 2 || len(mailboxes) != 2 {
		t.Fatalf("calendars=%d mailboxes=%d", len(calendars), len(mailboxes))
	}
	if filepath.Base(calendars[0].Path) != "one.ics" || filepath.Base(mailboxes[1].Path) != "two.mbox" {
		t.Fatalf("unexpected order: %v %v", calendars, mailboxes)
	}
}
