package history

import "time"

// RunStatus summarizes how a run ended.
type RunStatus string

const (
	// RunSucceeded means every archive and file was processed.
	RunSucceeded RunStatus = "succeeded"
	// RunPartial means outputs were written but some archives or files failed.
	RunPartial RunStatus = "partial"
	// RunFailed means the run aborted before outputs were written.
	RunFailed RunStatus = "failed"
)

// Run is one ingestion invocation.
type Run struct {
	ID             string    `json:"id" yaml:"id"`
	StartedAt      time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt     time.Time `json:"finished_at" yaml:"finished_at"`
	Status         RunStatus `json:"status" yaml:"status"`
	Archives       int       `json:"archives" yaml:"archives"`
	FailedArchives int       `json:"failed_archives" yaml:"failed_archives"`
	Files          int       `json:"files" yaml:"files"`
	FailedFiles    int       `json:"failed_files" yaml:"failed_files"`
	Events         int       `json:"events" yaml:"events"`
	Emails         int       `json:"emails" yaml:"emails"`
	EventsPath     string    `json:"events_path,omitempty" yaml:"events_path,omitempty"`
	EmailsPath     string    `json:"emails_path,omitempty" yaml:"emails_path,omitempty"`
	ErrorMessage   string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Archive is the outcome of one archive within a run.
type Archive struct {
	Position     int    `json:"position" yaml:"position"`
	Name         string `json:"name" yaml:"name"`
	IsolationKey string `json:"isolation_key" yaml:"isolation_key"`
	ExtractDir   string `json:"extract_dir,omitempty" yaml:"extract_dir,omitempty"`
	Status       string `json:"status" yaml:"status"`
	ErrorKind    string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string `json:"error,omitempty" yaml:"error,omitempty"`
	Files        int    `json:"files" yaml:"files"`
	FailedFiles  int    `json:"failed_files" yaml:"failed_files"`
	Events       int    `json:"events" yaml:"events"`
	Emails       int    `json:"emails" yaml:"emails"`
	DurationMS   int64  `json:"duration_ms" yaml:"duration_ms"`
	Entries      []File `json:"entries,omitempty" yaml:"entries,omitempty"`
}

// Archive statuses.
const (
	ArchiveProcessed = "processed"
	ArchiveSkipped   = "skipped"
)

// File is the outcome of one discovered file.
type File struct {
	Path         string `json:"path" yaml:"path"`
	Category     string `json:"category" yaml:"category"`
	Records      int    `json:"records" yaml:"records"`
	ErrorKind    string `json:"error_kind,omitempty" yaml:"error_kind,omitempty"`
	ErrorMessage string `json:"error,omitempty" yaml:"error,omitempty"`
}

// RunDetail is a run with its archives and files.
type RunDetail struct {
	Run     `yaml:",inline"`
	Results []Archive `json:"archive_results" yaml:"archive_results"`
}
