package testsupport

import (
	"path/filepath"
	"testing"

	"lifeingest/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// History and metrics are disabled unless an option enables them.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.UploadDir = filepath.Join(base, "uploads")
	cfgVal.Paths.ExtractDir = filepath.Join(base, "unzipped_takeout")
	cfgVal.Paths.OutputDir = filepath.Join(base, "structured_output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Staging.MinFreeMiB = 0
	cfgVal.History.Enabled = false
	cfgVal.History.Path = filepath.Join(base, "logs", "history.db")
	cfgVal.Metrics.Enabled = false
	cfgVal.Metrics.TextfilePath = filepath.Join(base, "logs", "lifeingest.prom")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithHistory enables the SQLite run history.
func WithHistory() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.History.Enabled = true
	}
}

// WithMetrics enables the Prometheus textfile export.
func WithMetrics() ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Metrics.Enabled = true
	}
}

// WithOutputDir overrides the output directory.
func WithOutputDir(dir string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.OutputDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.UploadDir)
}
