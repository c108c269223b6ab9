package staging

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"lifeingest/internal/logging"
)

// CleanStaleResult contains the outcome of a staging cleanup operation.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Merge appends other's removals and errors to r.
func (r *CleanStaleResult) Merge(other CleanStaleResult) {
	r.Removed = append(r.Removed, other.Removed...)
	r.Errors = append(r.Errors, other.Errors...)
}

// CleanStale removes extraction directories older than maxAge.
func CleanStale(ctx context.Context, extractDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	cutoff := time.Now().Add(-maxAge)
	return removeEntries(ctx, extractDir, logger, "stale", func(entry fs.DirEntry, info fs.FileInfo) bool {
		return entry.IsDir() && info.ModTime().Before(cutoff)
	})
}

// CleanStaleUploads removes persisted upload archives older than maxAge.
func CleanStaleUploads(ctx context.Context, uploadDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	cutoff := time.Now().Add(-maxAge)
	return removeEntries(ctx, uploadDir, logger, "stale", func(entry fs.DirEntry, info fs.FileInfo) bool {
		return !entry.IsDir() && strings.HasSuffix(entry.Name(), ".zip") && info.ModTime().Before(cutoff)
	})
}

// CleanOrphaned removes extraction directories whose upload archive no longer exists.
func CleanOrphaned(ctx context.Context, extractDir, uploadDir string, logger *slog.Logger) CleanStaleResult {
	uploadDir = strings.TrimSpace(uploadDir)
	if uploadDir == "" {
		return CleanStaleResult{}
	}
	return removeEntries(ctx, extractDir, logger, "orphaned", func(entry fs.DirEntry, _ fs.FileInfo) bool {
		if !entry.IsDir() {
			return false
		}
		_, err := os.Stat(filepath.Join(uploadDir, entry.Name()+".zip"))
		return os.IsNotExist(err)
	})
}

func removeEntries(ctx context.Context, dir string, logger *slog.Logger, reason string, match func(fs.DirEntry, fs.FileInfo) bool) CleanStaleResult {
	result := CleanStaleResult{}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return result
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) {
			result.Errors = append(result.Errors, CleanupError{Path: dir, Error: err})
		}
		return result
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		path := filepath.Join(dir, entry.Name())
		info, err := entry.Info()
		if err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			continue
		}
		if !match(entry, info) {
			continue
		}

		if err := os.RemoveAll(path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: path, Error: err})
			logging.WarnWithContext(ctx, logger, "failed to remove "+reason+" staging entry", "staging_cleanup_failed",
				logging.String("path", path),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check staging directory permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, path)
		logger.Info("removed "+reason+" staging entry",
			logging.String("path", path),
			logging.Duration("age", time.Since(info.ModTime()).Round(time.Second)),
			logging.String(logging.FieldEventType, "staging_cleanup"),
		)
	}

	return result
}

// DirInfo contains metadata about an extraction directory.
type DirInfo struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"modified"`
	Size    int64     `json:"size_bytes"`
	Files   int       `json:"files"`
}

// ListDirectories returns every extraction directory with its size and file count.
func ListDirectories(extractDir string) ([]DirInfo, error) {
	extractDir = strings.TrimSpace(extractDir)
	if extractDir == "" {
		return nil, nil
	}

	entries, err := os.ReadDir(extractDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var dirs []DirInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}

		dirPath := filepath.Join(extractDir, entry.Name())
		size, files := dirUsage(dirPath)
		dirs = append(dirs, DirInfo{
			Name:    entry.Name(),
			Path:    dirPath,
			ModTime: info.ModTime(),
			Size:    size,
			Files:   files,
		})
	}

	return dirs, nil
}

// dirUsage sums regular file sizes under path; unreadable entries are skipped.
func dirUsage(path string) (int64, int) {
	var size int64
	var files int
	_ = filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			size += info.Size()
			files++
		}
		return nil
	})
	return size, files
}
