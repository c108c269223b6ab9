package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"lifeingest/internal/calendar"
	"lifeingest/internal/config"
	"lifeingest/internal/discovery"
	"lifeingest/internal/history"
	"lifeingest/internal/ingesterr"
	"lifeingest/internal/logging"
	"lifeingest/internal/mailbox"
	"lifeingest/internal/metrics"
	"lifeingest/internal/notifications"
	"lifeingest/internal/output"
	"lifeingest/internal/record"
	"lifeingest/internal/runctx"
	"lifeingest/internal/session"
	"lifeingest/internal/staging"
)

// ErrSessionActive is returned when another ingestion session holds the lock.
var ErrSessionActive = errors.New("another ingestion session is already running")

// Result is the outcome of a completed run.
type Result struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Session    *session.Session
	Totals     session.Totals
	Blobs      output.Blobs
	Paths      output.Paths
	Detail     history.RunDetail
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRunIDs overrides run id generation.
func WithRunIDs(next func() string) Option {
	return func(p *Pipeline) {
		if next != nil {
			p.newRunID = next
		}
	}
}

// WithNotifier overrides the run notification service.
func WithNotifier(svc notifications.Service) Option {
	return func(p *Pipeline) {
		if svc != nil {
			p.notifier = svc
		}
	}
}

// Pipeline wires the stager, normalizers and output writer for a config.
type Pipeline struct {
	cfg      *config.Config
	logger   *slog.Logger
	stager   *staging.Stager
	writer   *output.Writer
	notifier notifications.Service
	now      func() time.Time
	newRunID func() string
}

// New builds a pipeline for cfg.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Pipeline {
	if logger == nil {
		logger = logging.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "ingest"),
		stager:   staging.NewStager(cfg, logger),
		writer:   output.NewWriter(cfg, logger),
		notifier: notifications.NewService(cfg),
		now:      time.Now,
		newRunID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Writer exposes the output writer, e.g. to export blobs.
func (p *Pipeline) Writer() *output.Writer { return p.writer }

type source struct {
	name  string
	stage func(context.Context) (*staging.ArchiveJob, error)
}

// Run ingests in-memory uploads in the given order.
func (p *Pipeline) Run(ctx context.Context, uploads []staging.Upload) (*Result, error) {
	sources := make([]source, 0, len(uploads))
	for _, upload := range uploads {
		sources = append(sources, source{
			name: upload.Name,
			stage: func(ctx context.Context) (*staging.ArchiveJob, error) {
				return p.stager.Stage(ctx, upload)
			},
		})
	}
	return p.run(ctx, sources)
}

// RunFiles ingests archives from disk in the given order. Each archive is
// identified by its base name.
func (p *Pipeline) RunFiles(ctx context.Context, paths []string) (*Result, error) {
	sources := make([]source, 0, len(paths))
	for _, path := range paths {
		sources = append(sources, source{
			name: filepath.Base(path),
			stage: func(ctx context.Context) (*staging.ArchiveJob, error) {
				return p.stager.StageFile(ctx, path)
			},
		})
	}
	return p.run(ctx, sources)
}

func (p *Pipeline) run(ctx context.Context, sources []source) (*Result, error) {
	if err := p.cfg.EnsureDirectories(); err != nil {
		return nil, ingesterr.Wrap(ingesterr.ErrConfiguration, "ingest", "ensure directories", "", err)
	}

	lock := flock.New(p.cfg.LockFilePath())
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire session lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrSessionActive, p.cfg.LockFilePath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			p.logger.Warn("failed to release session lock", logging.Error(err))
		}
	}()

	runID := p.newRunID()
	ctx = runctx.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, p.logger)
	started := p.now()

	var recorder *metrics.Recorder
	if p.cfg.Metrics.Enabled {
		recorder = metrics.NewRecorder()
	}

	logger.Info("ingestion started",
		logging.Int("archives", len(sources)),
		logging.String(logging.FieldEventType, "run_start"),
	)

	sess := session.New()
	var runErr error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		result, err := p.processArchive(ctx, src, sess)
		sess.AddArchive(result)
		observeArchive(recorder, result)
		if err != nil {
			runErr = err
			break
		}
	}

	var blobs output.Blobs
	if runErr == nil {
		blobs, runErr = p.writer.Write(sess.Events(), sess.Emails())
	}
	finished := p.now()

	detail := buildDetail(runID, started, finished, sess, p.writer.Paths(), runErr)
	p.recordHistory(ctx, detail)
	if recorder != nil {
		recorder.SetRecords(string(record.KindCalendarEvent), len(sess.Events()))
		recorder.SetRecords(string(record.KindEmailHeader), len(sess.Emails()))
		recorder.Finish(started, finished, runErr == nil)
		if err := recorder.WriteTextfile(p.cfg.Metrics.TextfilePath); err != nil {
			logging.WarnWithContext(ctx, p.logger, "metrics textfile not written", "metrics_write_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check metrics.textfile_path permissions"),
				logging.String(logging.FieldImpact, "metrics for this run are missing"),
			)
		}
	}

	totals := sess.Totals()
	if runErr != nil {
		logging.ErrorWithContext(ctx, p.logger, "ingestion failed", "run_failed",
			logging.Error(runErr),
			logging.String(logging.FieldErrorHint, hintFor(runErr)),
		)
		if !errors.Is(runErr, context.Canceled) {
			p.notify(ctx, func(ctx context.Context) error {
				return p.notifier.NotifyRunFailed(ctx, runID, runErr)
			})
		}
		return nil, runErr
	}

	logger.Info("ingestion completed",
		logging.Int("archives", totals.Archives),
		logging.Int("failed_archives", totals.FailedArchives),
		logging.Int("failed_files", totals.FailedFiles),
		logging.Int("events", totals.Events),
		logging.Int("emails", totals.Emails),
		logging.Duration("elapsed", finished.Sub(started)),
		logging.String(logging.FieldEventType, "run_complete"),
	)
	p.notify(ctx, func(ctx context.Context) error {
		return p.notifier.NotifyRunCompleted(ctx, notifications.RunSummary{
			RunID:          runID,
			Archives:       totals.Archives,
			FailedArchives: totals.FailedArchives,
			Files:          totals.Files,
			FailedFiles:    totals.FailedFiles,
			Events:         totals.Events,
			Emails:         totals.Emails,
			Duration:       finished.Sub(started),
		})
	})

	return &Result{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: finished,
		Session:    sess,
		Totals:     totals,
		Blobs:      blobs,
		Paths:      p.writer.Paths(),
		Detail:     detail,
	}, nil
}

// processArchive stages one archive and normalizes its files into sess.
// The returned error is non-nil only when ctx is cancelled or the failure is
// fatal for the whole run.
func (p *Pipeline) processArchive(ctx context.Context, src source, sess *session.Session) (session.ArchiveResult, error) {
	ctx = runctx.WithArchive(ctx, src.name)
	begin := time.Now()
	result := session.ArchiveResult{
		Name:         src.name,
		IsolationKey: staging.IsolationKey(src.name),
	}

	job, err := src.stage(runctx.WithStage(ctx, "staging"))
	if err != nil {
		result.Err = err
		result.Duration = time.Since(begin)
		if ctx.Err() != nil {
			return result, ctx.Err()
		}
		if ingesterr.Fatal(err) {
			return result, err
		}
		logging.WarnWithContext(ctx, p.logger, "archive skipped", "archive_skipped",
			logging.Error(err),
			logging.String("error_kind", ingesterr.Kind(err)),
			logging.String(logging.FieldErrorHint, hintFor(err)),
			logging.String(logging.FieldImpact, "no records from this archive"),
		)
		return result, nil
	}
	result.ExtractDir = job.ExtractDir

	ctx = runctx.WithStage(ctx, "discovery")
	calendars, mailboxes, walkErrs := discovery.Partition(job.ExtractDir)
	for _, walkErr := range walkErrs {
		logging.WarnWithContext(ctx, p.logger, "part of the archive could not be read", "discovery_error",
			logging.Error(walkErr),
			logging.String(logging.FieldErrorHint, "check permissions under the extraction directory"),
			logging.String(logging.FieldImpact, "files in unreadable directories are skipped"),
		)
	}
	logging.WithContext(ctx, p.logger).Info("files discovered",
		logging.Int("calendar_files", len(calendars)),
		logging.Int("mailbox_files", len(mailboxes)),
		logging.String(logging.FieldEventType, "discovery_complete"),
	)

	for _, entry := range append(calendars, mailboxes...) {
		if err := ctx.Err(); err != nil {
			result.Duration = time.Since(begin)
			return result, err
		}
		file := p.normalizeFile(ctx, job, entry, sess)
		result.Files = append(result.Files, file)
		if file.Failed() {
			continue
		}
		switch entry.Category {
		case discovery.Calendar:
			result.Events += file.Records
		case discovery.Mailbox:
			result.Emails += file.Records
		}
	}

	result.Duration = time.Since(begin)
	return result, nil
}

func (p *Pipeline) normalizeFile(ctx context.Context, job *staging.ArchiveJob, entry discovery.Entry, sess *session.Session) session.FileResult {
	rel, err := filepath.Rel(job.ExtractDir, entry.Path)
	if err != nil {
		rel = entry.Path
	}
	result := session.FileResult{Path: filepath.ToSlash(rel), Category: entry.Category}
	ctx = runctx.WithStage(ctx, entry.Category.String())

	data, readErr := os.ReadFile(entry.Path)
	switch entry.Category {
	case discovery.Calendar:
		if readErr != nil {
			result.Err = ingesterr.Wrap(ingesterr.ErrUnparseableCalendarFile, "calendar", "read", result.Path, readErr)
			break
		}
		events, err := calendar.Normalize(data, job.Name)
		if err != nil {
			result.Err = err
			break
		}
		sess.AppendEvents(events)
		result.Records = len(events)
	case discovery.Mailbox:
		if readErr != nil {
			result.Err = ingesterr.Wrap(ingesterr.ErrUnparseableMailboxFile, "mailbox", "read", result.Path, readErr)
			break
		}
		emails, err := mailbox.Normalize(data, job.Name)
		if err != nil {
			result.Err = err
			break
		}
		sess.AppendEmails(emails)
		result.Records = len(emails)
	}

	if result.Err != nil {
		logging.WarnWithContext(ctx, p.logger, entry.Category.String()+" file skipped", "file_skipped",
			logging.String(logging.FieldFile, result.Path),
			logging.Error(result.Err),
			logging.String("error_kind", ingesterr.Kind(result.Err)),
			logging.String(logging.FieldErrorHint, hintFor(result.Err)),
			logging.String(logging.FieldImpact, "no records from this file"),
		)
		return result
	}

	logging.WithContext(ctx, p.logger).Info(entry.Category.String()+" file parsed",
		logging.String(logging.FieldFile, result.Path),
		logging.Int("records", result.Records),
		logging.String(logging.FieldEventType, "file_parsed"),
	)
	return result
}

func (p *Pipeline) recordHistory(ctx context.Context, detail history.RunDetail) {
	if !p.cfg.History.Enabled {
		return
	}
	store, err := history.Open(p.cfg)
	if err == nil {
		err = store.RecordRun(ctx, detail)
		if closeErr := store.Close(); err == nil {
			err = closeErr
		}
	}
	if err != nil {
		logging.WarnWithContext(ctx, p.logger, "run history not recorded", "history_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path or delete a stale history database"),
			logging.String(logging.FieldImpact, "this run will not appear in `lifeingest runs`"),
		)
	}
}

// notify delivers a run notification. Failures only produce a warning.
func (p *Pipeline) notify(ctx context.Context, send func(context.Context) error) {
	if err := send(context.WithoutCancel(ctx)); err != nil {
		logging.WarnWithContext(ctx, p.logger, "run notification not delivered", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic and network access"),
			logging.String(logging.FieldImpact, "no push notification for this run"),
		)
	}
}

func observeArchive(recorder *metrics.Recorder, result session.ArchiveResult) {
	if recorder == nil {
		return
	}
	recorder.ObserveArchive(result.Failed(), result.Duration)
	for _, file := range result.Files {
		recorder.ObserveFile(file.Category.String(), file.Failed())
	}
}

func hintFor(err error) string {
	switch {
	case errors.Is(err, ingesterr.ErrInvalidArchive):
		return "verify the upload is a complete ZIP export"
	case errors.Is(err, ingesterr.ErrUnparseableCalendarFile):
		return "file is not valid iCalendar; re-export the calendar"
	case errors.Is(err, ingesterr.ErrUnparseableMailboxFile):
		return "file is not a valid mbox mailbox"
	case errors.Is(err, ingesterr.ErrOutputWrite):
		return "check output_dir permissions and free space"
	case errors.Is(err, ingesterr.ErrConfiguration):
		return "run `lifeingest config validate`"
	case errors.Is(err, context.Canceled):
		return "run was interrupted"
	default:
		return "check logs for details"
	}
}
