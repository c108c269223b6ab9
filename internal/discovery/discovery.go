// Package discovery walks an extraction directory and classifies the files
// the normalizers understand.
package discovery

import (
	"io/fs"
	"iter"
	"path/filepath"
	"strings"
)

// Category classifies a discovered file by its suffix.
type Category int

const (
	Ignored Category = iota
	Calendar
	Mailbox
)

const (
	calendarSuffix = ".ics"
	mailboxSuffix  = ".mbox"
)

func (c Category) String() string {
	switch c {
	case Calendar:
		return "calendar"
	case Mailbox:
		return "mailbox"
	default:
		return "ignored"
	}
}

// Classify maps a path to its category. Matching is case-sensitive, so
// "events.ICS" is ignored.
func Classify(path string) Category {
	switch {
	case strings.HasSuffix(path, calendarSuffix):
		return Calendar
	case strings.HasSuffix(path, mailboxSuffix):
		return Mailbox
	default:
		return Ignored
	}
}

// Entry is a classified file found under the walk root.
type Entry struct {
	Path     string
	Category Category
}

// Walk lazily yields every calendar and mailbox file under root in lexical
// order per directory. Ignored files and directories are not yielded.
// Traversal errors are yielded with a zero Entry carrying only the failing
// path; the walk continues past unreadable directories.
func Walk(root string) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(Entry{Path: path}, err) {
					return filepath.SkipAll
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}
			category := Classify(d.Name())
			if category == Ignored {
				return nil
			}
			if !yield(Entry{Path: path, Category: category}, nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// Partition drains Walk into calendar and mailbox lists, each in discovery
// order. Traversal errors are returned alongside the entries found.
func Partition(root string) (calendars, mailboxes []Entry, errs []error) {
	for entry, err := range Walk(root) {
		if err != nil {
			errs = append(errs, err)
			continue
		}
		switch entry.Category {
		case Calendar:
			calendars = append(calendars, entry)
		case Mailbox:
			mailboxes = append(mailboxes, entry)
		}
	}
	return calendars, mailboxes, errs
}
