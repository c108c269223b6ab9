// Package staging persists uploaded archives and extracts them into
// per-archive directories keyed by the archive's declared name.
package staging

import (
	"archive/zip"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"lifeingest/internal/config"
	"lifeingest/internal/fileutil"
	"lifeingest/internal/ingesterr"
	"lifeingest/internal/logging"
	"lifeingest/internal/preflight"
)

const stageName = "staging"

// Upload is an archive supplied by the caller: its declared file name and raw bytes.
type Upload struct {
	Name string
	Data []byte
}

// ArchiveJob describes one staged archive.
type ArchiveJob struct {
	Name         string
	IsolationKey string
	UploadPath   string
	ExtractDir   string
	Bytes        int64
	Files        int
}

// IsolationKey derives the staging key for an archive from its declared name.
// Identical names map to the same key, so re-uploading overwrites in place.
func IsolationKey(name string) string {
	sum := sha1.Sum([]byte(name))
	return hex.EncodeToString(sum[:])
}

// Stager writes uploads into the upload directory and extracts them under
// the extraction root.
type Stager struct {
	uploadDir    string
	extractDir   string
	minFreeBytes uint64
	logger       *slog.Logger
}

// NewStager builds a stager rooted at the configured upload and extraction directories.
func NewStager(cfg *config.Config, logger *slog.Logger) *Stager {
	if logger == nil {
		logger = logging.NewNop()
	}
	var minFree uint64
	if cfg.Staging.MinFreeMiB > 0 {
		minFree = uint64(cfg.Staging.MinFreeMiB) * 1024 * 1024
	}
	return &Stager{
		uploadDir:    cfg.Paths.UploadDir,
		extractDir:   cfg.Paths.ExtractDir,
		minFreeBytes: minFree,
		logger:       logging.NewComponentLogger(logger, stageName),
	}
}

// Stage persists the upload bytes and extracts the archive.
func (s *Stager) Stage(ctx context.Context, upload Upload) (*ArchiveJob, error) {
	job, err := s.newJob(upload.Name)
	if err != nil {
		return nil, err
	}
	if err := fileutil.WriteFileAtomic(job.UploadPath, upload.Data, 0o644); err != nil {
		return nil, ingesterr.Wrap(nil, stageName, "persist upload", job.Name, err)
	}
	job.Bytes = int64(len(upload.Data))
	if err := s.extract(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// StageFile stages an archive already on disk under its base name.
func (s *Stager) StageFile(ctx context.Context, path string) (*ArchiveJob, error) {
	job, err := s.newJob(filepath.Base(path))
	if err != nil {
		return nil, err
	}
	partial := job.UploadPath + ".part"
	res, err := fileutil.CopyFileVerified(path, partial)
	if err != nil {
		_ = os.Remove(partial)
		if errors.Is(err, os.ErrNotExist) {
			return nil, ingesterr.Wrap(ingesterr.ErrInvalidArchive, stageName, "read archive", path, err)
		}
		return nil, ingesterr.Wrap(nil, stageName, "persist upload", job.Name, err)
	}
	if err := os.Rename(partial, job.UploadPath); err != nil {
		_ = os.Remove(partial)
		return nil, ingesterr.Wrap(nil, stageName, "persist upload", job.Name, err)
	}
	job.Bytes = res.Bytes
	s.logger.Debug("archive copied into upload directory",
		logging.String("source", path),
		logging.String("sha256", res.SHA256),
		logging.Int64("bytes", res.Bytes),
	)
	if err := s.extract(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *Stager) newJob(name string) (*ArchiveJob, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ingesterr.Wrap(ingesterr.ErrInvalidArchive, stageName, "stage", "archive name is empty", nil)
	}
	key := IsolationKey(name)
	for _, dir := range []string{s.uploadDir, s.extractDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, ingesterr.Wrap(nil, stageName, "create directory", dir, err)
		}
	}
	return &ArchiveJob{
		Name:         name,
		IsolationKey: key,
		UploadPath:   filepath.Join(s.uploadDir, key+".zip"),
		ExtractDir:   filepath.Join(s.extractDir, key),
	}, nil
}

func (s *Stager) extract(ctx context.Context, job *ArchiveJob) error {
	reader, err := zip.OpenReader(job.UploadPath)
	if err != nil {
		if reader != nil {
			_ = reader.Close()
		}
		return ingesterr.Wrap(ingesterr.ErrInvalidArchive, stageName, "open archive", job.Name, err)
	}
	defer reader.Close()

	if err := os.MkdirAll(job.ExtractDir, 0o755); err != nil {
		return ingesterr.Wrap(nil, stageName, "create extraction directory", job.ExtractDir, err)
	}

	var uncompressed uint64
	for _, f := range reader.File {
		uncompressed += f.UncompressedSize64
	}
	s.checkFreeSpace(ctx, job, uncompressed)

	files := 0
	for _, f := range reader.File {
		if err := ctx.Err(); err != nil {
			return err
		}
		target, err := entryTarget(job.ExtractDir, f.Name)
		if err != nil {
			return ingesterr.Wrap(ingesterr.ErrInvalidArchive, stageName, "extract", job.Name, err)
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return ingesterr.Wrap(nil, stageName, "extract", target, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return ingesterr.Wrap(ingesterr.ErrInvalidArchive, stageName, "extract", job.Name, err)
		}
		files++
	}
	job.Files = files

	s.logger.Info("archive extracted",
		logging.String(logging.FieldArchive, job.Name),
		logging.String("isolation_key", job.IsolationKey),
		logging.String("extract_dir", job.ExtractDir),
		logging.Int("files", files),
		logging.Int64("bytes", job.Bytes),
		logging.String(logging.FieldEventType, "archive_extracted"),
	)
	return nil
}

// entryTarget resolves an archive entry name under root, rejecting names that
// would escape it.
func entryTarget(root, name string) (string, error) {
	target := filepath.Join(root, filepath.FromSlash(name))
	rel, err := filepath.Rel(root, target)
	if err != nil {
		return "", fmt.Errorf("entry %q: %w", name, err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("entry %q escapes extraction directory", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("open entry %q: %w", f.Name, err)
	}
	defer src.Close()

	dst, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return fmt.Errorf("read entry %q: %w", f.Name, err)
	}
	return dst.Close()
}

func (s *Stager) checkFreeSpace(ctx context.Context, job *ArchiveJob, needed uint64) {
	free, err := preflight.FreeBytes(job.ExtractDir)
	if err != nil {
		s.logger.Debug("free space check skipped", logging.Error(err))
		return
	}
	if free >= needed && free >= s.minFreeBytes {
		return
	}
	logging.WarnWithContext(ctx, s.logger, "low free space on extraction filesystem", "staging_low_space",
		logging.String(logging.FieldArchive, job.Name),
		logging.Int64("free_bytes", int64(free)),
		logging.Int64("needed_bytes", int64(needed)),
		logging.String(logging.FieldErrorHint, "free disk space or run `lifeingest staging prune`"),
		logging.String(logging.FieldImpact, "extraction may fail part way through"),
	)
}
