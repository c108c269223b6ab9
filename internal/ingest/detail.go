package ingest

import (
	"time"

	"lifeingest/internal/history"
	"lifeingest/internal/ingesterr"
	"lifeingest/internal/output"
	"lifeingest/internal/session"
)

// buildDetail converts a finished session into its history row.
func buildDetail(runID string, started, finished time.Time, sess *session.Session, paths output.Paths, runErr error) history.RunDetail {
	totals := sess.Totals()
	run := history.Run{
		ID:             runID,
		StartedAt:      started,
		FinishedAt:     finished,
		Status:         runStatus(totals, runErr),
		Archives:       totals.Archives,
		FailedArchives: totals.FailedArchives,
		Files:          totals.Files,
		FailedFiles:    totals.FailedFiles,
		Events:         totals.Events,
		Emails:         totals.Emails,
	}
	if runErr != nil {
		run.ErrorMessage = runErr.Error()
	} else {
		run.EventsPath = paths.Events
		run.EmailsPath = paths.Emails
	}

	archives := sess.Archives()
	results := make([]history.Archive, 0, len(archives))
	for i, a := range archives {
		entry := history.Archive{
			Position:     i,
			Name:         a.Name,
			IsolationKey: a.IsolationKey,
			ExtractDir:   a.ExtractDir,
			Status:       history.ArchiveProcessed,
			Files:        len(a.Files),
			FailedFiles:  a.FailedFiles(),
			Events:       a.Events,
			Emails:       a.Emails,
			DurationMS:   a.Duration.Milliseconds(),
		}
		if a.Failed() {
			entry.Status = history.ArchiveSkipped
			entry.ErrorKind = a.ErrorKind()
			entry.ErrorMessage = a.Err.Error()
		}
		for _, f := range a.Files {
			file := history.File{
				Path:     f.Path,
				Category: f.Category.String(),
				Records:  f.Records,
			}
			if f.Failed() {
				file.ErrorKind = ingesterr.Kind(f.Err)
				file.ErrorMessage = f.Err.Error()
			}
			entry.Entries = append(entry.Entries, file)
		}
		results = append(results, entry)
	}
	return history.RunDetail{Run: run, Results: results}
}

func runStatus(totals session.Totals, runErr error) history.RunStatus {
	switch {
	case runErr != nil:
		return history.RunFailed
	case totals.FailedArchives > 0 || totals.FailedFiles > 0:
		return history.RunPartial
	default:
		return history.RunSucceeded
	}
}
