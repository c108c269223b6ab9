package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("run not found")

const runColumns = "id, started_at, finished_at, status, archives, failed_archives, files, failed_files, events, emails, events_path, emails_path, error_message"

// RecordRun stores a run with its archives and files in one transaction.
func (s *Store) RecordRun(ctx context.Context, detail RunDetail) error {
	ctx = ensureContext(ctx)
	if detail.ID == "" {
		return errors.New("run id is required")
	}
	return retryOnBusy(ctx, func() error {
		return s.recordRunTx(ctx, detail)
	})
}

func (s *Store) recordRunTx(ctx context.Context, detail RunDetail) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin run tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	run := detail.Run
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		string(run.Status),
		run.Archives,
		run.FailedArchives,
		run.Files,
		run.FailedFiles,
		run.Events,
		run.Emails,
		nullableString(run.EventsPath),
		nullableString(run.EmailsPath),
		nullableString(run.ErrorMessage),
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for _, archive := range detail.Results {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_archives (run_id, position, name, isolation_key, extract_dir, status, error_kind, error_message, files, failed_files, events, emails, duration_ms)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			archive.Position,
			archive.Name,
			archive.IsolationKey,
			nullableString(archive.ExtractDir),
			archive.Status,
			nullableString(archive.ErrorKind),
			nullableString(archive.ErrorMessage),
			archive.Files,
			archive.FailedFiles,
			archive.Events,
			archive.Emails,
			archive.DurationMS,
		); err != nil {
			return fmt.Errorf("insert archive %s: %w", archive.Name, err)
		}
		for i, file := range archive.Entries {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_files (run_id, archive_position, position, path, category, records, error_kind, error_message)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				run.ID,
				archive.Position,
				i,
				file.Path,
				file.Category,
				file.Records,
				nullableString(file.ErrorKind),
				nullableString(file.ErrorMessage),
			); err != nil {
				return fmt.Errorf("insert file %s: %w", file.Path, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads a run with its archives and files. A unique id prefix is accepted.
func (s *Store) GetRun(ctx context.Context, id string) (*RunDetail, error) {
	ctx = ensureContext(ctx)

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2`, id, id+"%")
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch {
	case len(matches) == 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case len(matches) > 1 && matches[0].ID != id:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}

	detail := &RunDetail{Run: matches[0]}
	archives, err := s.loadArchives(ctx, detail.ID)
	if err != nil {
		return nil, err
	}
	detail.Results = archives
	return detail, nil
}

func (s *Store) loadArchives(ctx context.Context, runID string) ([]Archive, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, name, isolation_key, extract_dir, status, error_kind, error_message, files, failed_files, events, emails, duration_ms
		FROM run_archives WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query archives: %w", err)
	}
	var archives []Archive
	for rows.Next() {
		var (
			archive      Archive
			extractDir   sql.NullString
			errorKind    sql.NullString
			errorMessage sql.NullString
		)
		if err := rows.Scan(
			&archive.Position,
			&archive.Name,
			&archive.IsolationKey,
			&extractDir,
			&archive.Status,
			&errorKind,
			&errorMessage,
			&archive.Files,
			&archive.FailedFiles,
			&archive.Events,
			&archive.Emails,
			&archive.DurationMS,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		archive.ExtractDir = extractDir.String
		archive.ErrorKind = errorKind.String
		archive.ErrorMessage = errorMessage.String
		archives = append(archives, archive)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range archives {
		files, err := s.loadFiles(ctx, runID, archives[i].Position)
		if err != nil {
			return nil, err
		}
		archives[i].Entries = files
	}
	return archives, nil
}

func (s *Store) loadFiles(ctx context.Context, runID string, archivePosition int) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT path, category, records, error_kind, error_message
		FROM run_files WHERE run_id = ? AND archive_position = ? ORDER BY position`, runID, archivePosition)
	if err != nil {
		return nil, fmt.Errorf("query files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var (
			file         File
			errorKind    sql.NullString
			errorMessage sql.NullString
		)
		if err := rows.Scan(&file.Path, &file.Category, &file.Records, &errorKind, &errorMessage); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		file.ErrorKind = errorKind.String
		file.ErrorMessage = errorMessage.String
		files = append(files, file)
	}
	return files, rows.Err()
}

// ArchiveNames maps isolation keys to the most recently recorded archive name.
func (s *Store) ArchiveNames(ctx context.Context) (map[string]string, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.isolation_key, a.name FROM run_archives a
		JOIN runs r ON r.id = a.run_id
		ORDER BY r.started_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query archive names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string)
	for rows.Next() {
		var key, name string
		if err := rows.Scan(&key, &name); err != nil {
			return nil, fmt.Errorf("scan archive name: %w", err)
		}
		names[key] = name
	}
	return names, rows.Err()
}

// PruneBefore deletes runs that started before cutoff and returns how many were removed.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
		if err != nil {
			return err
		}
		removed, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}
